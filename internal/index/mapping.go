package index

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Fields is the bleve-indexed projection of a document. DocID is the
// document's normalized URL and is never itself indexed as a field — bleve
// keys documents by the ID passed to Index, not by a stored field.
type Fields struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Text        string `json:"text"`
	URL         string `json:"url"`
	Domain      string `json:"domain"`
}

// buildMapping gives title/description/url/domain a keyword-ish text
// analysis (standard analyzer, English stemming) and leaves text as the
// bulk body field. Field weighting happens at query time (see query.go),
// not via index-time boosts — bleve's FieldMapping carries no boost knob.
func buildMapping() *mapping.IndexMappingImpl {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = "en"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("title", textField)
	docMapping.AddFieldMappingsAt("description", textField)
	docMapping.AddFieldMappingsAt("text", textField)
	docMapping.AddFieldMappingsAt("url", textField)
	docMapping.AddFieldMappingsAt("domain", textField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = "en"
	return indexMapping
}
