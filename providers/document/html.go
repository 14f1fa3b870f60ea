package document

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/blueskygzhz/eino-cpp-sub002/internal/utils"
)

const (
	// DefaultTimeout is the default HTTP request timeout for HTMLLoader.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is the default User-Agent header value.
	DefaultUserAgent = "eino-document-loader/1.0"
	// DefaultMaxBodySize is the default response body cap (10MB).
	DefaultMaxBodySize = 10 * 1024 * 1024
	// DialTimeout is the maximum time to wait for a TCP connection.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the maximum time to wait for the TLS handshake.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is the maximum time to wait for response headers.
	ResponseHeaderTimeout = 10 * time.Second
	// IdleConnTimeout is the maximum time an idle connection is kept.
	IdleConnTimeout = 90 * time.Second
)

// HTMLLoader fetches a web page and converts its HTML content to Markdown,
// yielding a single document per source. Partial URLs such as "example.com"
// are normalised by prepending "https://". Up to ten redirects are followed;
// the document id and source metadata reflect the final URL.
//
// The response body is capped at a configurable size and reads honour
// context cancellation, so a slow or hostile server cannot block a graph run
// indefinitely.
type HTMLLoader struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
}

// HTMLOption configures an HTMLLoader.
type HTMLOption func(*HTMLLoader)

// WithTimeout sets the overall request timeout. Default is [DefaultTimeout].
func WithTimeout(timeout time.Duration) HTMLOption {
	return func(loader *HTMLLoader) {
		if timeout > 0 {
			loader.timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header sent with requests.
func WithUserAgent(userAgent string) HTMLOption {
	return func(loader *HTMLLoader) {
		if userAgent != "" {
			loader.userAgent = userAgent
		}
	}
}

// WithHTTPClient replaces the default hardened HTTP client. The caller
// becomes responsible for transport timeouts and redirect policy.
func WithHTTPClient(client *http.Client) HTMLOption {
	return func(loader *HTMLLoader) {
		if client != nil {
			loader.client = client
		}
	}
}

// WithMaxBodySize caps the response body size in bytes. Responses at or over
// the cap fail the load. Default is [DefaultMaxBodySize].
func WithMaxBodySize(maxBodySize int64) HTMLOption {
	return func(loader *HTMLLoader) {
		if maxBodySize > 0 {
			loader.maxBodySize = maxBodySize
		}
	}
}

// NewHTMLLoader returns an HTMLLoader with a hardened HTTP client: connection
// and TLS handshake timeouts, a response-header timeout, and a ten-redirect
// limit. Options override the defaults.
func NewHTMLLoader(options ...HTMLOption) *HTMLLoader {
	loader := &HTMLLoader{
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, option := range options {
		option(loader)
	}
	if loader.client == nil {
		loader.client = &http.Client{
			Timeout: loader.timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   DialTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   TLSHandshakeTimeout,
				ResponseHeaderTimeout: ResponseHeaderTimeout,
				IdleConnTimeout:       IdleConnTimeout,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				ForceAttemptHTTP2:     true,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects (>10)")
				}
				return nil
			},
		}
	}
	return loader
}

// Load fetches source.URI and returns its content converted to Markdown.
//
// The returned document's ID and source metadata hold the final URL after
// redirects. Load fails when the URL is empty, the status code is not
// 200 OK, the body reaches the configured size cap, conversion fails, or
// the context is cancelled.
func (loader *HTMLLoader) Load(ctx context.Context, source Source) ([]Document, error) {
	url := strings.TrimSpace(source.URI)
	if url == "" {
		return nil, fmt.Errorf("source URI cannot be empty")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, loader.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctxWithTimeout, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("User-Agent", loader.userAgent)

	response, err := loader.client.Do(request)
	if err != nil {
		if ctxWithTimeout.Err() != nil {
			return nil, fmt.Errorf("request timeout or canceled: %w", err)
		}
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer utils.CloseWithLog(response.Body)

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d %s", response.StatusCode, response.Status)
	}

	htmlBytes, err := loader.readBody(ctxWithTimeout, response.Body)
	if err != nil {
		return nil, err
	}

	markdown, err := htmltomarkdown.ConvertString(string(htmlBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}

	finalURL := response.Request.URL.String()
	doc := Document{
		ID:       finalURL,
		Content:  markdown,
		Metadata: map[string]any{MetaKeySource: finalURL},
	}
	return []Document{doc}, nil
}

// readBody reads the response body with the size cap, in a goroutine so that
// context cancellation is honoured even during slow reads.
func (loader *HTMLLoader) readBody(ctx context.Context, body io.Reader) ([]byte, error) {
	limitedReader := io.LimitReader(body, loader.maxBodySize)

	type readResult struct {
		data []byte
		err  error
	}
	readChan := make(chan readResult, 1)
	go func() {
		data, err := io.ReadAll(limitedReader)
		readChan <- readResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("timeout while reading response body: %w", ctx.Err())
	case result := <-readChan:
		if result.err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", result.err)
		}
		if int64(len(result.data)) == loader.maxBodySize {
			return nil, fmt.Errorf("response body exceeds maximum size of %d bytes", loader.maxBodySize)
		}
		return result.data, nil
	}
}
