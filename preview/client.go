package preview

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"door-tags/cache"
)

// ErrUpstream marks every failure of the compositing service so callers can
// map it to a gateway error without inspecting the text.
var ErrUpstream = errors.New("compositing service failure")

// UpstreamError carries the service's error text verbatim; it matches
// ErrUpstream under errors.Is.
type UpstreamError struct{ Text string }

func (e *UpstreamError) Error() string        { return e.Text }
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

const genericPreviewError = "preview generation failed, please try again"

// HTTPGenerator talks to the compositing service over HTTP. Preview responses
// are cached by a hash of the full request, since the same inputs always
// composite to the same images; Generate always goes to the service.
type HTTPGenerator struct {
	baseURL string
	client  *http.Client
	cache   cache.Cache
	ttl     time.Duration
	logger  *log.Logger
}

// NewHTTPGenerator creates a client for the service at baseURL. Preview
// responses are cached in c for ttl.
func NewHTTPGenerator(baseURL string, c cache.Cache, ttl time.Duration, logger *log.Logger) *HTTPGenerator {
	return &HTTPGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		cache:   c,
		ttl:     ttl,
		logger:  logger,
	}
}

type previewResponse struct {
	Items []Item `json:"items"`
}

func (g *HTTPGenerator) Preview(ctx context.Context, req Request) ([]Item, error) {
	key := cache.Key("preview", req)
	if data, ok, err := g.cache.Get(ctx, key); err != nil {
		g.logger.Warn("preview cache read failed", "err", err)
	} else if ok {
		var resp previewResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			return resp.Items, nil
		}
		// Corrupt entry, fall through to the service.
		_ = g.cache.Delete(ctx, key)
	}

	body, err := g.post(ctx, "/preview", req)
	if err != nil {
		return nil, err
	}

	var resp previewResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &UpstreamError{Text: genericPreviewError}
	}

	if err := g.cache.Set(ctx, key, body, g.ttl); err != nil {
		g.logger.Warn("preview cache write failed", "err", err)
	}
	return resp.Items, nil
}

type batchResponse struct {
	Tags []struct {
		Name  string `json:"name"`
		Image []byte `json:"image"`
	} `json:"tags"`
}

// Generate asks the service for one composited tag per (image, name) pairing
// and packs them into a timestamped ZIP, one entry per tag.
func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (*Archive, error) {
	body, err := g.post(ctx, "/generate", req)
	if err != nil {
		return nil, err
	}

	var resp batchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &UpstreamError{Text: genericPreviewError}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, tag := range resp.Tags {
		f, err := zw.Create(BatchFilename(i, tag.Name))
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(tag.Image); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("door_tags_%s.zip", time.Now().Format("20060102_150405"))
	return &Archive{Name: name, Data: buf.Bytes()}, nil
}

func (g *HTTPGenerator) newRequest(ctx context.Context, path string, req Request) (*http.Request, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

// post sends req and returns the response body, mapping transport failures
// and non-200 responses to ErrUpstream.
func (g *HTTPGenerator) post(ctx context.Context, path string, req Request) ([]byte, error) {
	httpReq, err := g.newRequest(ctx, path, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &UpstreamError{Text: genericPreviewError}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &UpstreamError{Text: genericPreviewError}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, upstreamError(body)
	}
	return body, nil
}

// upstreamError surfaces the service's own error text when it sent any, else
// a generic message.
func upstreamError(body []byte) error {
	text := strings.TrimSpace(string(body))
	if text == "" {
		text = genericPreviewError
	}
	return &UpstreamError{Text: text}
}

var _ Generator = (*HTTPGenerator)(nil)
