package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestDiscoverSources_WalksDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.md"), "# B")
	writeFile(t, filepath.Join(dir, "a.txt"), "A")
	writeFile(t, filepath.Join(dir, "nested", "data.csv"), "x,y\n1,2")
	writeFile(t, filepath.Join(dir, "image.png"), "binary")
	writeFile(t, filepath.Join(dir, ".hidden", "secret.txt"), "nope")
	writeFile(t, filepath.Join(dir, ".notes.md"), "nope")

	sources, err := DiscoverSources(dir)
	require.NoError(t, err)
	require.Len(t, sources, 3)

	assert.Equal(t, filepath.Join(dir, "a.txt"), sources[0].Locator)
	assert.Equal(t, domain.KindText, sources[0].Kind)
	assert.Equal(t, []byte("A"), sources[0].Content)
	assert.Equal(t, domain.KindMarkdown, sources[1].Kind)
	assert.Equal(t, domain.KindCSV, sources[2].Kind)
	assert.Equal(t, domain.SourceIDFromLocator(sources[2].Locator), sources[2].ID)
}

func TestDiscoverSources_FileAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "report.json")
	writeFile(t, file, `{"a": 1}`)

	sources, err := DiscoverSources(file, dir)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, domain.KindJSON, sources[0].Kind)
}

func TestDiscoverSources_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := DiscoverSources(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	doc := filepath.Join(dir, "letter.docx")
	writeFile(t, doc, "x")
	_, err = DiscoverSources(doc)
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
}

func TestDiscoverSources_StableIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "A")

	first, err := DiscoverSources(dir)
	require.NoError(t, err)
	second, err := DiscoverSources(dir)
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, second[0].ID)
}
