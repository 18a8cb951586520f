package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/kodesmith/searchcore/internal/metadata"
	"github.com/kodesmith/searchcore/pkg/failure"
	"github.com/kodesmith/searchcore/pkg/hashutil"
	"github.com/kodesmith/searchcore/pkg/urlutil"
	"golang.org/x/net/html"
)

/*
Extracted is the projection the rest of the pipeline consumes: the isolated
content node walked into plain text, title/description metadata, outbound
links resolved against <base href>, and a content hash used by the Document
Store to skip re-indexing unchanged pages.

This sits one layer above DomExtractor.Extract: Extract finds the node,
ExtractContent turns that node into the values a caller actually needs.
*/
type Extracted struct {
	Title       string
	Description string
	Text        string
	Links       []url.URL
	ContentHash string
	Language    string
	WordCount   int
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// ExtractContent runs DomExtractor's container-isolation pipeline and
// projects the result into title, description, visible text, a content
// hash, resolved outbound links, and a word count.
//
// Links are collected from the full document rather than the isolated
// content node: navigation links are legitimate crawl targets even when
// they live in chrome that the text projection discards.
func (d *DomExtractor) ExtractContent(sourceURL url.URL, htmlByte []byte) (Extracted, failure.ClassifiedError) {
	result, err := d.Extract(sourceURL, htmlByte)
	if err != nil {
		return Extracted{}, err
	}

	gqDoc := goquery.NewDocumentFromNode(result.DocumentRoot)
	baseURL := resolveBaseURL(sourceURL, gqDoc)

	text := visibleText(result.ContentNode)
	hash, hashErr := hashutil.HashBytes([]byte(text), hashutil.HashAlgoSHA256)
	if hashErr != nil {
		extractionErr := &ExtractionError{
			Message:   fmt.Sprintf("failed to hash content: %v", hashErr),
			Retryable: false,
			Cause:     ErrCauseHashFailure,
		}
		d.metadataSink.RecordError(
			time.Now(),
			"extractor",
			"DomExtractor.ExtractContent",
			mapExtractionErrorToMetadataCause(extractionErr),
			extractionErr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, fmt.Sprintf("%v", sourceURL)),
			},
		)
		return Extracted{}, extractionErr
	}

	return Extracted{
		Title:       strings.TrimSpace(gqDoc.Find("title").First().Text()),
		Description: metaDescription(gqDoc),
		Text:        text,
		Links:       collectLinks(gqDoc, baseURL),
		ContentHash: hash,
		Language:    documentLanguage(gqDoc),
		WordCount:   wordCount(text),
	}, nil
}

// resolveBaseURL honors a document's <base href> per RFC 3986 §5, falling
// back to the URL the page was fetched from when absent or unparsable.
func resolveBaseURL(sourceURL url.URL, gqDoc *goquery.Document) url.URL {
	href, ok := gqDoc.Find("base[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return sourceURL
	}
	ref, err := url.Parse(href)
	if err != nil {
		return sourceURL
	}
	return urlutil.ResolveRef(sourceURL, *ref)
}

func metaDescription(gqDoc *goquery.Document) string {
	if content, ok := gqDoc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	if content, ok := gqDoc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	return ""
}

func documentLanguage(gqDoc *goquery.Document) string {
	if lang, ok := gqDoc.Find("html").First().Attr("lang"); ok {
		return strings.TrimSpace(lang)
	}
	return ""
}

// collectLinks walks every <a href> in the document, resolves it against
// base, canonicalizes it, and drops anything that isn't http(s).
func collectLinks(gqDoc *goquery.Document, base url.URL) []url.URL {
	var links []url.URL
	seen := make(map[string]struct{})

	gqDoc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := urlutil.ResolveRef(base, *ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		canonical := urlutil.Canonicalize(resolved)
		key := canonical.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, canonical)
	})

	return links
}

// visibleText walks the content node depth-first, emitting text-node data
// and collapsing whitespace. <script> and <style> subtrees are skipped
// entirely: their text is markup, not content.
func visibleText(node *html.Node) string {
	if node == nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n == nil {
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(b.String(), " "))
}

func wordCount(text string) int {
	if text == "" {
		return 0
	}
	return len(strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r)
	}))
}
