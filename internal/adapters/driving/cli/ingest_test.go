package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestIngestCmd_Metadata(t *testing.T) {
	assert.Equal(t, "ingest [paths...]", ingestCmd.Use)
	assert.NotNil(t, ingestCmd.Flags().Lookup("use-case"))
	assert.NotNil(t, ingestCmd.Flags().Lookup("json"))
}

func TestIngestCmd_RequiresArgs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ingest")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestIngestCmd_IngestsDirectory(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	dir := writeFiles(t, map[string]string{
		"report.md":       "# Report\nAcme grew.",
		"nested/data.csv": "name,city\nAcme,Berlin\n",
		"binary.exe":      "MZ",
		".hidden/a.md":    "# hidden",
	})

	out, err := execute(t, "ingest", dir, "--use-case", "financial")

	require.NoError(t, err)
	received := m.ingest.sources()
	require.Len(t, received, 2)
	for _, s := range received {
		assert.Equal(t, "financial", s.UseCase)
		assert.NotEmpty(t, s.ID)
	}
	assert.Contains(t, out, "Ingested 2 of 2 sources")
	assert.Contains(t, out, "report.md (2 chunks")
	assert.Contains(t, out, "Chunks:    4")
}

func TestIngestCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	dir := writeFiles(t, map[string]string{"a.txt": "Acme is a company."})

	out, err := execute(t, "ingest", dir, "--json", "--use-case", "legal")

	require.NoError(t, err)
	var got struct {
		SourcesIngested int                   `json:"sources_ingested"`
		UseCase         string                `json:"use_case"`
		PipelineStats   domain.PipelineStats  `json:"pipeline_stats"`
		Failed          []domain.FailedSource `json:"failed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.SourcesIngested)
	assert.Equal(t, "legal", got.UseCase)
	assert.Equal(t, 1, got.PipelineStats.ByState["DONE"])
	assert.NotNil(t, got.Failed)
}

func TestIngestCmd_NoSupportedFiles(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	dir := writeFiles(t, map[string]string{"tool.exe": "MZ"})

	_, err := execute(t, "ingest", dir)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestCmd_MissingPath(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ingest", filepath.Join(t.TempDir(), "missing"))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestCmd_AllFailed(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	m.ingest.result = &domain.IngestResult{
		Failed: []domain.FailedSource{{Source: "bad.pdf", Reason: "parse error: not a pdf"}},
		Sources: []domain.SourceStatus{
			{SourceID: "src_1", Locator: "/tmp/bad.pdf", State: domain.StateFailed, Reason: "parse error: not a pdf"},
		},
	}
	dir := writeFiles(t, map[string]string{"bad.pdf": "nope"})

	out, err := execute(t, "ingest", dir)

	require.Error(t, err)
	assert.Equal(t, domain.KindIngestionFailed, domain.KindOf(err))
	assert.Contains(t, out, "FAILED  bad.pdf: parse error: not a pdf")
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	clearServices()

	_, err := execute(t, "ingest", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest service not configured")
}
