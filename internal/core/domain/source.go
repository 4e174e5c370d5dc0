package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// SourceKind identifies how the bytes of a source are decoded.
type SourceKind string

// Supported source kinds.
const (
	KindPDF      SourceKind = "pdf"
	KindCSV      SourceKind = "csv"
	KindMarkdown SourceKind = "markdown"
	KindHTML     SourceKind = "html"
	KindJSON     SourceKind = "json"
	KindText     SourceKind = "text"
)

// extensionKinds maps file extensions to source kinds.
var extensionKinds = map[string]SourceKind{
	".pdf":      KindPDF,
	".csv":      KindCSV,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".html":     KindHTML,
	".htm":      KindHTML,
	".txt":      KindText,
	".json":     KindJSON,
}

// AllSourceKinds returns every supported kind in a stable order.
func AllSourceKinds() []SourceKind {
	return []SourceKind{KindPDF, KindCSV, KindMarkdown, KindHTML, KindJSON, KindText}
}

// IsValid returns true if the kind is in the supported set.
func (k SourceKind) IsValid() bool {
	for _, known := range AllSourceKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// String returns the string representation.
func (k SourceKind) String() string {
	return string(k)
}

// ParseSourceKind converts a user-supplied kind name, accepting common aliases
// ("md", "txt", "htm").
func ParseSourceKind(s string) (SourceKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "md":
		return KindMarkdown, true
	case "txt", "plaintext":
		return KindText, true
	case "htm":
		return KindHTML, true
	}
	k := SourceKind(s)
	return k, k.IsValid()
}

// KindFromPath derives a kind from a file extension.
// The second return value is false for unsupported extensions.
func KindFromPath(path string) (SourceKind, bool) {
	kind, ok := extensionKinds[strings.ToLower(filepath.Ext(path))]
	return kind, ok
}

// SupportedExtensions returns the file extensions that map to a kind.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionKinds))
	for ext := range extensionKinds {
		exts = append(exts, ext)
	}
	return exts
}

// Source is one ingestible input.
// A source is immutable once ingested; re-ingesting the same ID replaces
// everything derived from it.
type Source struct {
	// ID uniquely identifies the source across ingestions.
	ID string

	// Kind selects the normaliser.
	Kind SourceKind

	// Locator is where the source came from (file path, URL, upload name).
	Locator string

	// Content is the raw bytes.
	Content []byte

	// UseCase is an optional caller-supplied label (e.g. "financial").
	UseCase string
}

// SourceIDFromLocator derives a stable source ID from a locator so that
// re-ingesting the same file resolves to the same source.
func SourceIDFromLocator(locator string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(locator)))
	return "src_" + hex.EncodeToString(sum[:8])
}

// DisplayName returns the locator's base name, or the ID if there is no locator.
func (s *Source) DisplayName() string {
	if s.Locator == "" {
		return s.ID
	}
	return filepath.Base(s.Locator)
}
