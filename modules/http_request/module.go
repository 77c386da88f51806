package http_request

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/registry"
	"github.com/vk/buildgridgo/modules/http_client"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client overrides the shared client, mostly for tests.
	Client *http.Client
}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	URL          string            `bggo:"url"`
	Method       string            `bggo:"method,optional"`
	Headers      map[string]string `bggo:"headers,optional"`
	Body         string            `bggo:"body,optional"`
	Timeout      string            `bggo:"timeout,optional"`
	ExpectStatus []int             `bggo:"expect_status,optional"`
	ParseJSON    bool              `bggo:"parse_json,optional"`
}

// Output defines the data structure returned by the action.
type Output struct {
	StatusCode int    `mapstructure:"status_code"`
	Body       string `mapstructure:"body"`
	JSON       any    `mapstructure:"json"`
}

const defaultTimeout = 30 * time.Second

var sharedClient = http_client.New(0)

func (m *Module) client() *http.Client {
	if m.Client != nil {
		return m.Client
	}
	return sharedClient
}

// Do performs the request and fails when the response status is not
// expected. Without expect_status any 2xx status is accepted.
func (m *Module) Do(ctx context.Context, _ *buildctx.Context, input *Input) (*Output, error) {
	method := strings.ToUpper(input.Method)
	if method == "" {
		method = http.MethodGet
	}
	logger := ctxlog.FromContext(ctx)
	logger.Info("Making HTTP request", "method", method, "url", input.URL)

	timeout, err := http_client.ParseTimeout(input.Timeout, defaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if input.Body != "" {
		body = strings.NewReader(input.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, input.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range input.Headers {
		req.Header.Set(k, v)
	}

	resp, err := m.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "status", resp.Status)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	out := &Output{StatusCode: resp.StatusCode, Body: string(bodyBytes)}

	if !statusExpected(resp.StatusCode, input.ExpectStatus) {
		return out, fmt.Errorf("%s %s: unexpected status %s", method, input.URL, resp.Status)
	}
	if input.ParseJSON && len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, &out.JSON); err != nil {
			return out, fmt.Errorf("response body is not valid JSON: %w", err)
		}
	}
	return out, nil
}

func statusExpected(code int, expected []int) bool {
	if len(expected) == 0 {
		return code >= 200 && code < 300
	}
	for _, want := range expected {
		if code == want {
			return true
		}
	}
	return false
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("http_request", registry.Typed("Sends an HTTP request.", m.Do))
}
