package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// renderRequest is the JSON body posted to the headless render service.
type renderRequest struct {
	URL       string `json:"url"`
	TimeoutMs int64  `json:"timeoutMs"`
}

// renderResponse is the JSON body returned by the headless render service.
type renderResponse struct {
	HTML       string `json:"html"`
	FinalURL   string `json:"finalUrl"`
	StatusCode int    `json:"statusCode"`
}

const defaultRenderTimeout = 30 * time.Second

// renderViaHeadless delegates rendering of fetchParam.fetchUrl to the
// configured render service over plain JSON-over-HTTP. On any
// channel failure it returns a non-nil, non-retryable FetchError with
// Cause=ErrCauseRenderFailed: the caller must not fall back to the raw
// HTML silently.
func (h *HtmlFetcher) renderViaHeadless(ctx context.Context, fetchParam FetchParam) (FetchResult, *FetchError) {
	if fetchParam.renderEndpoint == "" {
		return FetchResult{}, &FetchError{
			Message:   "render requested but no render_service_endpoint configured",
			Retryable: false,
			Cause:     ErrCauseRenderFailed,
		}
	}

	payload, err := json.Marshal(renderRequest{
		URL:       fetchParam.fetchUrl.String(),
		TimeoutMs: defaultRenderTimeout.Milliseconds(),
	})
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to encode render request: %v", err),
			Retryable: false,
			Cause:     ErrCauseRenderFailed,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fetchParam.renderEndpoint, bytes.NewReader(payload))
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to build render request: %v", err),
			Retryable: false,
			Cause:     ErrCauseRenderFailed,
		}
	}
	req.Header.Set("Content-Type", "application/json")

	client := h.httpClient
	if client == nil {
		client = &http.Client{}
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return FetchResult{}, &FetchError{
				Message:   "render cancelled",
				Retryable: false,
				Cause:     ErrCauseCancelled,
			}
		}
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("render channel failure: %v", err),
			Retryable: false,
			Cause:     ErrCauseRenderFailed,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("render service returned %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseRenderFailed,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read render response: %v", err),
			Retryable: false,
			Cause:     ErrCauseRenderFailed,
		}
	}

	var rendered renderResponse
	if err := json.Unmarshal(body, &rendered); err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("invalid render response: %v", err),
			Retryable: false,
			Cause:     ErrCauseRenderFailed,
		}
	}

	finalURL := fetchParam.fetchUrl
	if rendered.FinalURL != "" {
		if parsed, perr := url.Parse(rendered.FinalURL); perr == nil {
			finalURL = *parsed
		}
	}

	return FetchResult{
		url:      fetchParam.fetchUrl,
		finalURL: finalURL,
		body:     []byte(rendered.HTML),
		meta: ResponseMeta{
			statusCode:      rendered.StatusCode,
			responseHeaders: map[string]string{"Content-Type": "text/html; charset=utf-8"},
		},
		fetchedAt:     time.Now(),
		usedRendering: true,
	}, nil
}
