package api

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validater is implemented by every request body.
type Validater interface {
	Validate() map[string]string
}

// QuestionRequest is the body of POST /api/qa.
type QuestionRequest struct {
	Question     string `json:"question" validate:"required,max=4000"`
	NResults     *int   `json:"n_results" validate:"omitempty,min=1,max=20"`
	IncludeGraph *bool  `json:"include_graph"`
}

// Validate checks field constraints.
func (r *QuestionRequest) Validate() map[string]string {
	return validateStruct(r)
}

// ToQuestion applies defaults for omitted fields.
func (r *QuestionRequest) ToQuestion(defaults domain.QASettings) domain.Question {
	q := domain.Question{
		Text:         r.Question,
		NResults:     defaults.NResults,
		IncludeGraph: defaults.IncludeGraph,
	}
	if r.NResults != nil {
		q.NResults = *r.NResults
	}
	if r.IncludeGraph != nil {
		q.IncludeGraph = *r.IncludeGraph
	}
	return q
}

// SourceRequest is one inline source. Binary kinds such as pdf send their
// bytes in ContentBase64, which takes precedence over Content.
type SourceRequest struct {
	ID            string `json:"id,omitempty" validate:"omitempty,max=256"`
	Kind          string `json:"kind" validate:"required"`
	Locator       string `json:"locator,omitempty"`
	Content       string `json:"content,omitempty" validate:"required_without=ContentBase64"`
	ContentBase64 string `json:"content_base64,omitempty" validate:"omitempty,base64"`
	UseCase       string `json:"use_case,omitempty" validate:"omitempty,max=64"`
}

// IngestRequest is the body of POST /api/ingest.
type IngestRequest struct {
	Sources []SourceRequest `json:"sources" validate:"required,min=1,max=100,dive"`
}

// Validate checks field constraints.
func (r *IngestRequest) Validate() map[string]string {
	return validateStruct(r)
}

// ToSources converts the request into domain sources. An unknown kind is
// passed through so the pipeline reports it as an unsupported source.
func (r *IngestRequest) ToSources() ([]domain.Source, error) {
	sources := make([]domain.Source, 0, len(r.Sources))
	for i, s := range r.Sources {
		content := []byte(s.Content)
		if s.ContentBase64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(s.ContentBase64)
			if err != nil {
				return nil, fmt.Errorf("%w: sources[%d]: %v", domain.ErrInvalidInput, i, err)
			}
			content = decoded
		}

		kind, ok := domain.ParseSourceKind(s.Kind)
		if !ok {
			kind = domain.SourceKind(s.Kind)
		}
		sources = append(sources, domain.Source{
			ID:      s.ID,
			Kind:    kind,
			Locator: s.Locator,
			Content: content,
			UseCase: s.UseCase,
		})
	}
	return sources, nil
}

// UploadResponse is the body returned by POST /api/upload.
type UploadResponse struct {
	domain.IngestResultView
	UseCase       string               `json:"use_case,omitempty"`
	PipelineStats domain.PipelineStats `json:"pipeline_stats"`
}

func validateStruct(v any) map[string]string {
	if err := validate.Struct(v); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return map[string]string{"body": err.Error()}
		}
		out := make(map[string]string, len(errs))
		for _, e := range errs {
			field := e.Namespace()
			if _, rest, ok := strings.Cut(field, "."); ok {
				field = rest
			}
			out[field] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return out
	}
	return nil
}
