package export

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// Empty-state text for optional document sections.
const (
	noSASText            = "No SAS implementation provided."
	noRText              = "No R implementation provided."
	noConsiderationsText = "No specific considerations documented."
	noVariationsText     = "No common variations documented."
)

// Entry is one resolved basket item.
type Entry struct {
	Definition     *models.PatternDefinition
	Implementation *models.PatternImplementation
}

// Path returns the archive path of the entry's document.
func (e Entry) Path() string {
	return fmt.Sprintf("%s/%s_%s.md", e.Definition.Category.Folder(), e.Definition.ID, Slugify(e.Definition.Title))
}

var documentTemplate = template.Must(template.New("document").Option("missingkey=zero").Parse(
	`# {{.Title}}

**Pattern ID:** {{.ID}}  
**Category:** {{.Category}}  
**Author:** {{.Author}}
{{- if .Premium}}  
**Tier:** Premium
{{- end}}

## Problem

{{.Problem}}

## When to Use

{{.WhenToUse}}

## SAS Implementation

{{.SAS}}

## R Implementation

{{.R}}

## Key Considerations

{{.Considerations}}

## Common Variations

{{.Variations}}

---
*Last updated: {{.LastUpdated}}*
`))

type documentView struct {
	Title          string
	ID             string
	Category       string
	Author         string
	Premium        bool
	Problem        string
	WhenToUse      string
	SAS            string
	R              string
	Considerations string
	Variations     string
	LastUpdated    string
}

// RenderDocument renders the markdown document for one entry.
func RenderDocument(e Entry) ([]byte, error) {
	d, impl := e.Definition, e.Implementation
	view := documentView{
		Title:          d.Title,
		ID:             d.ID,
		Category:       d.Category.Label(),
		Author:         impl.AuthorName,
		Premium:        impl.IsPremium,
		Problem:        d.Problem,
		WhenToUse:      d.WhenToUse,
		SAS:            codeBlock("sas", impl.SASCode, noSASText),
		R:              codeBlock("r", impl.RCode, noRText),
		Considerations: bulletList(impl.Considerations, noConsiderationsText),
		Variations:     bulletList(impl.Variations, noVariationsText),
		LastUpdated:    impl.UpdatedAt.UTC().Format("2006-01-02"),
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func codeBlock(lang, code, empty string) string {
	code = strings.TrimRight(code, " \t\r\n")
	if strings.TrimSpace(code) == "" {
		return "*" + empty + "*"
	}
	return "```" + lang + "\n" + code + "\n```"
}

func bulletList(items []string, empty string) string {
	var lines []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			lines = append(lines, "- "+item)
		}
	}
	if len(lines) == 0 {
		return empty
	}
	return strings.Join(lines, "\n")
}
