// Package export turns a curated basket into a zip bundle of one manifest
// plus one markdown document per pattern.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// DefaultTitle is used when no manifest title is configured.
const DefaultTitle = "Pattern Catalog Export"

// archiveModTime is stamped on every zip entry so identical input yields identical bytes.
var archiveModTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Resolver looks up the records a basket entry points at. A nil result
// means the record does not exist. Resolve may be called concurrently.
type Resolver interface {
	Resolve(ctx context.Context, patternID string, implID uuid.UUID) (*models.PatternDefinition, *models.PatternImplementation, error)
}

// File is one archive member.
type File struct {
	Path    string
	Content []byte
}

// Bundle is a packaged export: the manifest followed by documents in manifest order.
type Bundle struct {
	Files []File
}

// Packager builds bundles.
type Packager struct {
	resolver    Resolver
	title       string
	maxParallel int
}

// NewPackager creates a Packager. maxParallel <= 0 means one resolution at a time.
func NewPackager(resolver Resolver, title string, maxParallel int) *Packager {
	if title == "" {
		title = DefaultTitle
	}
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &Packager{resolver: resolver, title: title, maxParallel: maxParallel}
}

// Package resolves every entry of selections and renders the bundle.
// Any missing, deleted or mismatched entry fails the whole export.
func (p *Packager) Package(ctx context.Context, selections map[string]uuid.UUID) (*Bundle, error) {
	if len(selections) == 0 {
		return nil, apperrors.Packaging("", "nothing selected for export")
	}

	patternIDs := make([]string, 0, len(selections))
	for id := range selections {
		patternIDs = append(patternIDs, id)
	}
	sort.Strings(patternIDs)

	entries := make([]Entry, len(patternIDs))
	docs := make([][]byte, len(patternIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxParallel)
	for i, patternID := range patternIDs {
		g.Go(func() error {
			entry, err := p.resolve(gctx, patternID, selections[patternID])
			if err != nil {
				return err
			}
			doc, err := RenderDocument(entry)
			if err != nil {
				return apperrors.Packaging(patternID, "failed to render document: %v", err)
			}
			entries[i] = entry
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return models.DefinitionLess(entries[order[a]].Definition, entries[order[b]].Definition)
	})

	sorted := make([]Entry, len(entries))
	for i, idx := range order {
		sorted[i] = entries[idx]
	}

	manifest, err := RenderManifest(p.title, sorted)
	if err != nil {
		return nil, apperrors.Packaging("", "failed to render manifest: %v", err)
	}

	bundle := &Bundle{Files: make([]File, 0, len(entries)+1)}
	bundle.Files = append(bundle.Files, File{Path: ManifestPath, Content: manifest})
	for _, idx := range order {
		bundle.Files = append(bundle.Files, File{Path: entries[idx].Path(), Content: docs[idx]})
	}
	return bundle, nil
}

func (p *Packager) resolve(ctx context.Context, patternID string, implID uuid.UUID) (Entry, error) {
	def, impl, err := p.resolver.Resolve(ctx, patternID, implID)
	if err != nil {
		return Entry{}, err
	}
	if def == nil || def.IsDeleted() {
		return Entry{}, apperrors.Packaging(patternID, "pattern definition is missing or deleted")
	}
	if impl == nil || impl.IsDeleted() {
		return Entry{}, apperrors.Packaging(patternID, "implementation %s is missing or deleted", implID)
	}
	if impl.PatternID != patternID {
		return Entry{}, apperrors.Packaging(patternID, "implementation %s belongs to %s", implID, impl.PatternID)
	}
	return Entry{Definition: def, Implementation: impl}, nil
}

// WriteZip writes the bundle as a zip archive.
func (b *Bundle) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, f := range b.Files {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Path,
			Method:   zip.Deflate,
			Modified: archiveModTime,
		})
		if err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", f.Path, err)
		}
		if _, err := fw.Write(f.Content); err != nil {
			return fmt.Errorf("failed to write %s to archive: %w", f.Path, err)
		}
	}
	return zw.Close()
}

// Zip returns the archive bytes.
func (b *Bundle) Zip() ([]byte, error) {
	var buf bytes.Buffer
	if err := b.WriteZip(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Document returns the content at path, if present.
func (b *Bundle) Document(path string) ([]byte, bool) {
	for _, f := range b.Files {
		if f.Path == path {
			return f.Content, true
		}
	}
	return nil, false
}
