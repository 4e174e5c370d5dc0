package api

import (
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driving"
	"github.com/custodia-labs/fusionqa/internal/logger"
)

// DefaultVisualizeLimit is the edge limit when ?limit is absent.
const DefaultVisualizeLimit = 100

// QAHandler answers questions.
type QAHandler struct {
	qa       driving.QAService
	defaults domain.QASettings
}

// NewQAHandler creates a QA handler with the given request defaults.
func NewQAHandler(qa driving.QAService, defaults domain.QASettings) *QAHandler {
	return &QAHandler{qa: qa, defaults: defaults}
}

// HandleQuestion serves POST /api/qa.
func (h *QAHandler) HandleQuestion(c *fiber.Ctx) error {
	var req QuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrBadRequest("invalid JSON request")
	}
	if errs := req.Validate(); len(errs) > 0 {
		return NewValidationError(errs)
	}

	answer, err := h.qa.Answer(c.UserContext(), req.ToQuestion(h.defaults))
	if err != nil {
		return err
	}
	return c.JSON(answer.Present())
}

// IngestHandler runs sources through the pipeline.
type IngestHandler struct {
	ingest driving.IngestService
}

// NewIngestHandler creates an ingest handler.
func NewIngestHandler(ingest driving.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// HandleIngest serves POST /api/ingest with inline sources.
func (h *IngestHandler) HandleIngest(c *fiber.Ctx) error {
	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrBadRequest("invalid JSON request")
	}
	if errs := req.Validate(); len(errs) > 0 {
		return NewValidationError(errs)
	}

	sources, err := req.ToSources()
	if err != nil {
		return err
	}
	result, err := h.ingest.Ingest(c.UserContext(), sources)
	if err != nil {
		return err
	}
	return c.JSON(result.Present())
}

// HandleUpload serves POST /api/upload. Every "file" part becomes a source
// tagged with the use_case form value; kinds come from file extensions.
func (h *IngestHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return ErrBadRequest("expected a multipart form")
	}
	files := form.File["file"]
	if len(files) == 0 {
		return NewValidationError(map[string]string{"file": "at least one file is required"})
	}
	useCase := c.FormValue("use_case")

	sources := make([]domain.Source, 0, len(files))
	for _, fh := range files {
		src, err := sourceFromUpload(fh, useCase)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}
	logger.Debug("Upload: %d files, use case %q", len(sources), useCase)

	result, err := h.ingest.Ingest(c.UserContext(), sources)
	if err != nil {
		return err
	}
	return c.JSON(UploadResponse{
		IngestResultView: result.Present(),
		UseCase:          useCase,
		PipelineStats:    result.PipelineStats(),
	})
}

func sourceFromUpload(fh *multipart.FileHeader, useCase string) (domain.Source, error) {
	file, err := fh.Open()
	if err != nil {
		return domain.Source{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.Source{}, err
	}

	name := filepath.Base(fh.Filename)
	kind, ok := domain.KindFromPath(name)
	if !ok {
		kind = domain.SourceKind(filepath.Ext(name))
	}
	return domain.Source{
		ID:      domain.SourceIDFromLocator("upload/" + name),
		Kind:    kind,
		Locator: name,
		Content: data,
		UseCase: useCase,
	}, nil
}

// GraphHandler exposes graph and vector store views.
type GraphHandler struct {
	graph driving.GraphService
}

// NewGraphHandler creates a graph handler.
func NewGraphHandler(graph driving.GraphService) *GraphHandler {
	return &GraphHandler{graph: graph}
}

// HandleStats serves GET /api/graph/stats.
func (h *GraphHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.graph.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// HandleVisualize serves GET /api/graph/visualize?limit=N.
func (h *GraphHandler) HandleVisualize(c *fiber.Ctx) error {
	limit := DefaultVisualizeLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return NewValidationError(map[string]string{"limit": "must be a positive integer"})
		}
		limit = n
	}

	snapshot, err := h.graph.Visualize(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(snapshot)
}

// HandleVectorStats serves GET /api/vector-store/stats.
func (h *GraphHandler) HandleVectorStats(c *fiber.Ctx) error {
	stats, err := h.graph.VectorStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// HealthHandler reports component health.
type HealthHandler struct {
	health driving.HealthService
}

// NewHealthHandler creates a health handler. health may be nil.
func NewHealthHandler(health driving.HealthService) *HealthHandler {
	return &HealthHandler{health: health}
}

// HandleHealth serves GET /api/health. An unavailable system answers 503.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	if h.health == nil {
		return c.JSON(domain.Health{Status: domain.HealthOK, Components: []domain.ComponentHealth{}})
	}
	report := h.health.Check(c.UserContext())
	if report.Status == domain.HealthUnavailable {
		c.Status(fiber.StatusServiceUnavailable)
	}
	return c.JSON(report)
}
