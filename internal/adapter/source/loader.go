package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"finrag/internal/domain"
)

// Loader is a document source that walks a directory of text files and
// produces (text, metadata) pairs ready for ingestion. Each document
// carries its relative path as provenance and a category tag inferred
// from the filename unless overridden.
type Loader struct {
	includes []string
	excludes []string
	docType  string
}

func NewLoader(includes, excludes []string, docType string) *Loader {
	if len(includes) == 0 {
		includes = []string{"**/*.txt", "**/*.md"}
	}
	return &Loader{
		includes: includes,
		excludes: excludes,
		docType:  docType,
	}
}

// Load walks root and returns one document per matching file.
func (l *Loader) Load(root string) ([]domain.Document, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var docs []domain.Document
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if l.matches(l.excludes, relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !l.matches(l.includes, relPath) || l.matches(l.excludes, relPath) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		docType := l.docType
		if docType == "" {
			docType = classify(relPath)
		}

		docs = append(docs, domain.Document{
			Text: string(data),
			Metadata: domain.Metadata{
				domain.KeySource: relPath,
				domain.KeyType:   docType,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return docs, nil
}

// FromText wraps raw text (e.g. piped stdin) as a document with a
// generated provenance id.
func (l *Loader) FromText(text, docType string) domain.Document {
	if docType == "" {
		docType = domain.TypeStockData
	}
	return domain.Document{
		Text: text,
		Metadata: domain.Metadata{
			domain.KeySource: "inline:" + uuid.NewString(),
			domain.KeyType:   docType,
		},
	}
}

func (l *Loader) matches(patterns []string, path string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// classify guesses a category tag from the filename.
func classify(path string) string {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "news"):
		return domain.TypeStockNews
	case strings.Contains(name, "filing"), strings.Contains(name, "10-k"), strings.Contains(name, "10-q"):
		return domain.TypeSECFiling
	case strings.Contains(name, "sentiment"):
		return domain.TypeSentiment
	default:
		return domain.TypeStockData
	}
}
