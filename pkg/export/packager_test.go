package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

var updated = time.Date(2025, 4, 15, 9, 30, 0, 0, time.UTC)

func fixture() ([]*models.PatternDefinition, []*models.PatternImplementation) {
	defs := []*models.PatternDefinition{
		{ID: "IMP-010", Category: models.CategoryImputation, Title: "Mean imputation", Problem: "Gaps in lab values", WhenToUse: "Few missing values"},
		{ID: "IMP-002", Category: models.CategoryImputation, Title: "LOCF", Problem: "Missing visits", WhenToUse: "Longitudinal data"},
		{ID: "FMT-001", Category: models.CategoryFormats, Title: "Value | labels", Problem: "Coded values", WhenToUse: "Reporting"},
	}
	impls := []*models.PatternImplementation{
		{UUID: uuid.New(), PatternID: "IMP-010", AuthorName: "Alice", SASCode: "proc stdize; run;", Status: models.ImplementationStatusActive, UpdatedAt: updated},
		{UUID: uuid.New(), PatternID: "IMP-002", AuthorName: models.SystemDefaultAuthor, RCode: "tidyr::fill(df)", Considerations: []string{"Sort first"}, Status: models.ImplementationStatusActive, IsPremium: true, UpdatedAt: updated},
		{UUID: uuid.New(), PatternID: "FMT-001", AuthorName: "Bob", SASCode: "proc format; run;", RCode: "factor(x)", Variations: []string{"Use labelled", " "}, Status: models.ImplementationStatusActive, UpdatedAt: updated},
	}
	return defs, impls
}

func selectionsFor(impls []*models.PatternImplementation) map[string]uuid.UUID {
	sel := make(map[string]uuid.UUID, len(impls))
	for _, i := range impls {
		sel[i.PatternID] = i.UUID
	}
	return sel
}

func TestPackager_ManifestPlusOneDocumentPerPattern(t *testing.T) {
	defs, impls := fixture()
	p := NewPackager(NewIndexResolver(defs, impls), "", 4)

	bundle, err := p.Package(context.Background(), selectionsFor(impls))
	require.NoError(t, err)

	paths := make([]string, 0, len(bundle.Files))
	for _, f := range bundle.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{
		"MANIFEST.md",
		"imputation/IMP-002_locf.md",
		"imputation/IMP-010_mean-imputation.md",
		"formats-and-labels/FMT-001_value-labels.md",
	}, paths)
}

func TestPackager_DeterministicArchive(t *testing.T) {
	defs, impls := fixture()
	sel := selectionsFor(impls)

	first, err := NewPackager(NewIndexResolver(defs, impls), "Study bundle", 1).Package(context.Background(), sel)
	require.NoError(t, err)
	second, err := NewPackager(NewIndexResolver(defs, impls), "Study bundle", 8).Package(context.Background(), sel)
	require.NoError(t, err)

	a, err := first.Zip()
	require.NoError(t, err)
	b, err := second.Zip()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b), "identical input must produce identical archives")

	zr, err := zip.NewReader(bytes.NewReader(a), int64(len(a)))
	require.NoError(t, err)
	require.Len(t, zr.File, 4)
	assert.Equal(t, ManifestPath, zr.File[0].Name)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	want, _ := first.Document("imputation/IMP-002_locf.md")
	assert.Equal(t, want, content)
}

func TestPackager_ManifestContent(t *testing.T) {
	defs, impls := fixture()
	bundle, err := NewPackager(NewIndexResolver(defs, impls), "Study bundle", 2).Package(context.Background(), selectionsFor(impls))
	require.NoError(t, err)

	manifest := string(bundle.Files[0].Content)
	assert.True(t, strings.HasPrefix(manifest, "---\ntitle: Study bundle\nformat: pattern-catalog/v1\npattern_count: 3\ncategories:\n    - IMP\n    - FMT\n---\n"))
	assert.Contains(t, manifest, "This bundle contains 3 patterns.")
	assert.Contains(t, manifest, "## Imputation (IMP)")
	assert.Contains(t, manifest, "## Formats & Labels (FMT)")
	assert.Contains(t, manifest, `| FMT-001 | Value \| labels | [formats-and-labels/FMT-001_value-labels.md](formats-and-labels/FMT-001_value-labels.md) |`)
	assert.Less(t, strings.Index(manifest, "IMP-002"), strings.Index(manifest, "IMP-010"), "numeric order within category")
	assert.NotContains(t, manifest, "## Dates")
}

func TestPackager_SinglePatternWording(t *testing.T) {
	defs, impls := fixture()
	bundle, err := NewPackager(NewIndexResolver(defs, impls), "", 1).Package(context.Background(),
		map[string]uuid.UUID{"IMP-002": impls[1].UUID})
	require.NoError(t, err)
	assert.Contains(t, string(bundle.Files[0].Content), "This bundle contains 1 pattern.")
}

func TestRenderDocument_Sections(t *testing.T) {
	defs, impls := fixture()

	doc, err := RenderDocument(Entry{Definition: defs[1], Implementation: impls[1]})
	require.NoError(t, err)
	text := string(doc)

	assert.True(t, strings.HasPrefix(text, "# LOCF\n\n**Pattern ID:** IMP-002  \n**Category:** Imputation  \n**Author:** System  \n**Tier:** Premium\n\n## Problem\n\nMissing visits\n"))
	assert.Contains(t, text, "## When to Use\n\nLongitudinal data\n")
	assert.Contains(t, text, "## SAS Implementation\n\n*"+noSASText+"*\n")
	assert.Contains(t, text, "## R Implementation\n\n```r\ntidyr::fill(df)\n```\n")
	assert.Contains(t, text, "## Key Considerations\n\n- Sort first\n")
	assert.Contains(t, text, "## Common Variations\n\n"+noVariationsText+"\n")
	assert.True(t, strings.HasSuffix(text, "*Last updated: 2025-04-15*\n"))

	doc, err = RenderDocument(Entry{Definition: defs[2], Implementation: impls[2]})
	require.NoError(t, err)
	text = string(doc)
	assert.Contains(t, text, "**Author:** Bob\n\n## Problem")
	assert.Contains(t, text, "## Key Considerations\n\n"+noConsiderationsText+"\n")
	assert.Contains(t, text, "## Common Variations\n\n- Use labelled\n\n")
}

func TestPackager_FailsOnBadEntries(t *testing.T) {
	defs, impls := fixture()

	deletedDef := *defs[0]
	deletedDef.Deleted = &models.Deletion{At: updated, By: "root"}
	deletedImpl := *impls[1]
	deletedImpl.Deleted = &models.Deletion{At: updated, By: "root"}

	tests := []struct {
		name      string
		defs      []*models.PatternDefinition
		impls     []*models.PatternImplementation
		selection map[string]uuid.UUID
		wantID    string
	}{
		{name: "empty selection", defs: defs, impls: impls, selection: map[string]uuid.UUID{}},
		{name: "unknown implementation", defs: defs, impls: impls, selection: map[string]uuid.UUID{"IMP-002": uuid.New()}, wantID: "IMP-002"},
		{name: "unknown definition", defs: defs, impls: impls, selection: map[string]uuid.UUID{"DAT-001": impls[0].UUID}, wantID: "DAT-001"},
		{name: "mismatched pattern", defs: defs, impls: impls, selection: map[string]uuid.UUID{"IMP-002": impls[0].UUID}, wantID: "IMP-002"},
		{name: "deleted definition", defs: []*models.PatternDefinition{&deletedDef}, impls: impls, selection: map[string]uuid.UUID{"IMP-010": impls[0].UUID}, wantID: "IMP-010"},
		{name: "deleted implementation", defs: defs, impls: []*models.PatternImplementation{&deletedImpl}, selection: map[string]uuid.UUID{"IMP-002": deletedImpl.UUID}, wantID: "IMP-002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPackager(NewIndexResolver(tt.defs, tt.impls), "", 2).Package(context.Background(), tt.selection)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrPackaging))

			var appErr *apperrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantID, appErr.ID)
		})
	}
}

// countingResolver records how many lookups ran concurrently.
type countingResolver struct {
	inner   Resolver
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (c *countingResolver) Resolve(ctx context.Context, patternID string, implID uuid.UUID) (*models.PatternDefinition, *models.PatternImplementation, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return c.inner.Resolve(ctx, patternID, implID)
}

func TestPackager_RespectsParallelLimit(t *testing.T) {
	defs, impls := fixture()
	resolver := &countingResolver{inner: NewIndexResolver(defs, impls)}

	_, err := NewPackager(resolver, "", 1).Package(context.Background(), selectionsFor(impls))
	require.NoError(t, err)
	assert.Equal(t, int32(1), resolver.maxSeen.Load())
}
