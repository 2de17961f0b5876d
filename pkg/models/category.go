package models

import "strings"

// Category is the closed set of pattern categories. The code doubles as the
// prefix of every definition id in that category.
type Category string

// Category constants, in declaration order. Exports list categories in this order.
const (
	CategoryImputation     Category = "IMP"
	CategoryDerivation     Category = "DER"
	CategoryMerging        Category = "MRG"
	CategoryTransposition  Category = "TRN"
	CategoryAggregation    Category = "AGG"
	CategoryDates          Category = "DAT"
	CategoryStrings        Category = "STR"
	CategoryFlags          Category = "FLG"
	CategoryQualityControl Category = "QCV"
	CategoryStatistics     Category = "STA"
	CategoryTables         Category = "TAB"
	CategoryGraphics       Category = "GRF"
	CategoryMacros         Category = "MAC"
	CategoryFormats        Category = "FMT"
)

// categoryInfo holds display metadata for a category.
type categoryInfo struct {
	label  string
	folder string
}

// Categories lists every category in declaration order.
var Categories = []Category{
	CategoryImputation,
	CategoryDerivation,
	CategoryMerging,
	CategoryTransposition,
	CategoryAggregation,
	CategoryDates,
	CategoryStrings,
	CategoryFlags,
	CategoryQualityControl,
	CategoryStatistics,
	CategoryTables,
	CategoryGraphics,
	CategoryMacros,
	CategoryFormats,
}

var categoryMeta = map[Category]categoryInfo{
	CategoryImputation:     {label: "Imputation", folder: "imputation"},
	CategoryDerivation:     {label: "Derivations", folder: "derivations"},
	CategoryMerging:        {label: "Merging & Joining", folder: "merging-and-joining"},
	CategoryTransposition:  {label: "Transposition & Reshaping", folder: "transposition-and-reshaping"},
	CategoryAggregation:    {label: "Aggregation & Summaries", folder: "aggregation-and-summaries"},
	CategoryDates:          {label: "Dates & Times", folder: "dates-and-times"},
	CategoryStrings:        {label: "String Handling", folder: "string-handling"},
	CategoryFlags:          {label: "Flags & Indicators", folder: "flags-and-indicators"},
	CategoryQualityControl: {label: "Quality Control & Validation", folder: "quality-control-and-validation"},
	CategoryStatistics:     {label: "Statistical Modelling", folder: "statistical-modelling"},
	CategoryTables:         {label: "Tables & Listings", folder: "tables-and-listings"},
	CategoryGraphics:       {label: "Graphics", folder: "graphics"},
	CategoryMacros:         {label: "Macros & Functions", folder: "macros-and-functions"},
	CategoryFormats:        {label: "Formats & Labels", folder: "formats-and-labels"},
}

// ParseCategory converts a code (case-insensitive) into a Category.
func ParseCategory(code string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(code)))
	_, ok := categoryMeta[c]
	return c, ok
}

// IsValid reports whether c is a member of the closed set.
func (c Category) IsValid() bool {
	_, ok := categoryMeta[c]
	return ok
}

// Label returns the human-readable category name.
func (c Category) Label() string {
	return categoryMeta[c].label
}

// Folder returns the export folder name for the category.
func (c Category) Folder() string {
	return categoryMeta[c].folder
}

// Order returns the declaration index of c, or len(Categories) for unknown values.
func (c Category) Order() int {
	for i, known := range Categories {
		if known == c {
			return i
		}
	}
	return len(Categories)
}
