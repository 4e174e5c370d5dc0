package services

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/logger"
)

// DiscoverSources expands files and directories into sources. Directories
// are walked recursively; hidden entries are skipped and only supported
// extensions are kept. Content is read eagerly. Results are sorted by path.
func DiscoverSources(paths ...string) ([]domain.Source, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, root, err)
		}

		if !info.IsDir() {
			if _, ok := domain.KindFromPath(root); !ok {
				return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedKind, root)
			}
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("Skipping %s: %v", path, err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := domain.KindFromPath(path); ok {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Strings(files)

	sources := make([]domain.Source, 0, len(files))
	for _, path := range files {
		src, err := SourceFromFile(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	logger.Debug("Discovered %d sources", len(sources))
	return sources, nil
}

// SourceFromFile reads a file into a source with a stable ID.
func SourceFromFile(path string) (domain.Source, error) {
	kind, ok := domain.KindFromPath(path)
	if !ok {
		return domain.Source{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedKind, path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Source{}, fmt.Errorf("read %s: %w", path, err)
	}
	return domain.Source{
		ID:      domain.SourceIDFromLocator(path),
		Kind:    kind,
		Locator: path,
		Content: content,
	}, nil
}
