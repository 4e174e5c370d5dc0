package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
)

func testDefaults() map[string]string {
	return map[string]string{
		driven.PromptExtraction:       "Extract %s %s from:\n%s",
		driven.PromptExtractionRepair: "Repair %s %s %s %s",
		driven.PromptSynthesis:        "Context:\n%s\nQuestion: %s",
	}
}

func newTestPromptStore(t *testing.T) (*PromptStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewPromptStore(dir, testDefaults())
	require.NoError(t, err)
	return store, dir
}

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	store, dir := newTestPromptStore(t)

	assert.Equal(t, dir, store.Dir())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "constructor must not write files")
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("", nil)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".fusionqa", "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	store, dir := newTestPromptStore(t)

	_, err := store.Load(driven.PromptSynthesis)
	require.NoError(t, err)

	for _, f := range []string{"extraction.txt", "extraction_repair.txt", "synthesis.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_Load_ReturnsDefaultContent(t *testing.T) {
	store, _ := newTestPromptStore(t)

	prompt, err := store.Load(driven.PromptSynthesis)

	require.NoError(t, err)
	assert.Equal(t, "Context:\n%s\nQuestion: %s", prompt)
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "Answer %s using %s"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "synthesis.txt"), []byte(custom), 0600))

	store, err := NewPromptStore(dir, testDefaults())
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptSynthesis)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	store, dir := newTestPromptStore(t)
	_, err := store.Load(driven.PromptExtraction)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "extraction.txt")))
	store.Reload()

	prompt, err := store.Load(driven.PromptExtraction)
	require.NoError(t, err)
	assert.Equal(t, testDefaults()[driven.PromptExtraction], prompt)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, _ := newTestPromptStore(t)

	_, err := store.Load("does_not_exist")

	assert.Error(t, err)
}

func TestPromptStore_Reload_PicksUpEdits(t *testing.T) {
	store, dir := newTestPromptStore(t)
	first, err := store.Load(driven.PromptSynthesis)
	require.NoError(t, err)

	path := filepath.Join(dir, "synthesis.txt")
	require.NoError(t, os.WriteFile(path, []byte("edited %s %s"), 0600))

	cached, err := store.Load(driven.PromptSynthesis)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptSynthesis)
	require.NoError(t, err)
	assert.Equal(t, "edited %s %s", fresh)
}

func TestPromptStore_DoesNotOverwriteExistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extraction.txt")
	require.NoError(t, os.WriteFile(path, []byte("mine %s %s %s"), 0600))

	store, err := NewPromptStore(dir, testDefaults())
	require.NoError(t, err)
	_, err = store.Load(driven.PromptExtraction)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mine %s %s %s", string(data))
}

func TestPromptStore_TrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "synthesis.txt"), []byte("\n  %s %s  \n\n"), 0600))

	store, err := NewPromptStore(dir, testDefaults())
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptSynthesis)
	require.NoError(t, err)
	assert.Equal(t, "%s %s", prompt)
}

func TestPromptStore_DefaultsAreCopied(t *testing.T) {
	defaults := testDefaults()
	store, err := NewPromptStore(t.TempDir(), defaults)
	require.NoError(t, err)

	defaults[driven.PromptSynthesis] = "mutated"

	_ = os.RemoveAll(store.Dir())
	require.NoError(t, os.WriteFile(store.Dir(), nil, 0600))
	prompt, err := store.Load(driven.PromptSynthesis)
	require.NoError(t, err)
	assert.Equal(t, "Context:\n%s\nQuestion: %s", prompt)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, _ := newTestPromptStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := []string{driven.PromptExtraction, driven.PromptExtractionRepair, driven.PromptSynthesis}[i%3]
			prompt, err := store.Load(name)
			assert.NoError(t, err)
			assert.NotEmpty(t, prompt)
			if i%5 == 0 {
				store.Reload()
			}
		}(i)
	}
	wg.Wait()
}
