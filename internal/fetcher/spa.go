package fetcher

import (
	"regexp"
	"strings"
)

// frameworkMarkers are substrings that, when present in a document's raw
// bytes, strongly suggest the meaningful content is produced by client-side
// script after load.
var frameworkMarkers = []string{
	"data-reactroot",
	"ng-version",
	"<app-root",
	"__next_data__",
	"_nuxt",
	"___gatsby",
}

const (
	spaMaxExternalScripts = 5
	spaSmallBodyBytes     = 10_000
)

var scriptTagRe = regexp.MustCompile(`(?is)<script\b[^>]*\bsrc\s*=`)
var bodyTagRe = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)
var scriptOrNoscriptRe = regexp.MustCompile(`(?is)<(script|noscript)\b[^>]*>.*?</(script|noscript)>`)
var tagRe = regexp.MustCompile(`(?is)<[^>]+>`)

// IsSPA reports whether body looks like it requires client-side rendering
// to produce meaningful content. False positives are tolerated (they just
// waste a render); false negatives are not, since they silently drop
// content, so each heuristic errs toward firing.
func IsSPA(body []byte) (bool, []string) {
	lower := strings.ToLower(string(body))

	var indicators []string
	for _, marker := range frameworkMarkers {
		if strings.Contains(lower, marker) {
			indicators = append(indicators, marker)
		}
	}

	externalScripts := len(scriptTagRe.FindAllString(lower, -1))
	if externalScripts > spaMaxExternalScripts && len(body) < spaSmallBodyBytes {
		indicators = append(indicators, "many_external_scripts_small_body")
	}

	if bodyIsEmptyAfterScriptStrip(lower) {
		indicators = append(indicators, "empty_body_after_script_strip")
	}

	return len(indicators) > 0, indicators
}

func bodyIsEmptyAfterScriptStrip(lowerHTML string) bool {
	match := bodyTagRe.FindStringSubmatch(lowerHTML)
	if match == nil {
		return false
	}
	stripped := scriptOrNoscriptRe.ReplaceAllString(match[1], "")
	stripped = tagRe.ReplaceAllString(stripped, "")
	return strings.TrimSpace(stripped) == ""
}

// shouldRender decides, for an already-fetched 2xx HTML body, whether the
// render policy calls for delegating to the headless render service.
func (h *HtmlFetcher) shouldRender(fetchParam FetchParam, body []byte) bool {
	switch fetchParam.renderPolicy {
	case RenderAlways:
		return true
	case RenderOnSPAHeurstic:
		isSPA, _ := IsSPA(body)
		return isSPA
	default:
		return false
	}
}
