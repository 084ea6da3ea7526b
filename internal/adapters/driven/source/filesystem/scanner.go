// Package filesystem discovers ingestable documents in a local
// directory tree. It produces DocumentRefs with deterministic IDs so
// repeated scans of the same tree describe the same documents, and
// watches the tree for changes.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
	"github.com/archivo-labs/archivo-cli/internal/logger"
)

// contentTypeByExtension maps file extensions to content types. Files
// with other extensions are skipped during a scan.
var contentTypeByExtension = map[string]domain.ContentType{
	".pdf":      domain.ContentTypePDF,
	".docx":     domain.ContentTypeDOCX,
	".txt":      domain.ContentTypeText,
	".md":       domain.ContentTypeText,
	".markdown": domain.ContentTypeText,
}

// Scanner walks a root directory and lists supported documents. A root
// pointing at a single file yields exactly that file.
type Scanner struct {
	root   string
	isFile bool
}

// NewScanner creates a scanner rooted at the given directory or file.
func NewScanner(root string) (*Scanner, error) {
	if root == "" {
		return nil, fmt.Errorf("scan root is required: %w", domain.ErrInvalidConfig)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving scan root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", abs, err)
	}
	return &Scanner{root: abs, isFile: !info.IsDir()}, nil
}

// Root returns the absolute scan root.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the tree and returns refs for all supported files, sorted
// by path for deterministic ingestion order. Hidden files and
// directories are skipped.
func (s *Scanner) Scan(ctx context.Context) ([]domain.DocumentRef, error) {
	if s.isFile {
		return s.scanFile()
	}

	var refs []domain.DocumentRef

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		name := d.Name()
		if strings.HasPrefix(name, ".") && path != s.root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		contentType, ok := contentTypeByExtension[strings.ToLower(filepath.Ext(name))]
		if !ok {
			logger.Debug("skipping unsupported file %s", path)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return fmt.Errorf("relativising %s: %w", path, err)
		}

		refs = append(refs, domain.DocumentRef{
			ID:          DocumentID(rel),
			Path:        path,
			ContentType: contentType,
			ModifiedAt:  info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", s.root, err)
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}

// scanFile handles a root pointing at a single document. The ID derives
// from the file name, so the same file ingested directly or via its
// parent directory maps to the same document.
func (s *Scanner) scanFile() ([]domain.DocumentRef, error) {
	name := filepath.Base(s.root)
	contentType, ok := contentTypeByExtension[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return nil, fmt.Errorf("unsupported file type %s: %w", s.root, domain.ErrUnsupportedType)
	}

	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", s.root, err)
	}

	return []domain.DocumentRef{{
		ID:          DocumentID(name),
		Path:        s.root,
		ContentType: contentType,
		ModifiedAt:  info.ModTime(),
	}}, nil
}

// DocumentID derives a stable document identifier from a root-relative
// path. The same file always maps to the same ID, so re-ingestion
// overwrites rather than duplicates.
func DocumentID(relPath string) string {
	sum := sha256.Sum256([]byte(filepath.ToSlash(relPath)))
	return hex.EncodeToString(sum[:8])
}
