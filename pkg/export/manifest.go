package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// ManifestPath is the archive path of the manifest.
const ManifestPath = "MANIFEST.md"

// ManifestFormat identifies the bundle layout for consumers of the archive.
const ManifestFormat = "pattern-catalog/v1"

// frontMatter is the fixed YAML header of the manifest.
type frontMatter struct {
	Title        string   `yaml:"title"`
	Format       string   `yaml:"format"`
	PatternCount int      `yaml:"pattern_count"`
	Categories   []string `yaml:"categories"`
}

// RenderManifest renders the manifest for entries already sorted by
// category declaration order then numeric id.
func RenderManifest(title string, entries []Entry) ([]byte, error) {
	var categories []models.Category
	for _, e := range entries {
		if n := len(categories); n == 0 || categories[n-1] != e.Definition.Category {
			categories = append(categories, e.Definition.Category)
		}
	}

	fm := frontMatter{
		Title:        title,
		Format:       ManifestFormat,
		PatternCount: len(entries),
		Categories:   make([]string, 0, len(categories)),
	}
	for _, c := range categories {
		fm.Categories = append(fm.Categories, string(c))
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "This bundle contains %d %s.\n", len(entries), patternNoun(len(entries)))

	i := 0
	for _, c := range categories {
		fmt.Fprintf(&buf, "\n## %s (%s)\n\n", c.Label(), c)
		buf.WriteString("| ID | Title | Path |\n")
		buf.WriteString("|----|-------|------|\n")
		for ; i < len(entries) && entries[i].Definition.Category == c; i++ {
			e := entries[i]
			fmt.Fprintf(&buf, "| %s | %s | [%s](%s) |\n",
				e.Definition.ID, escapeCell(e.Definition.Title), e.Path(), e.Path())
		}
	}

	return buf.Bytes(), nil
}

func patternNoun(n int) string {
	if n == 1 {
		return "pattern"
	}
	return inflection.Plural("pattern")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
