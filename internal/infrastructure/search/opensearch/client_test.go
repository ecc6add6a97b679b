package opensearch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

// scriptedTransport routes requests by "METHOD path-prefix" and records
// everything it serves.
type scriptedTransport struct {
	mu       sync.Mutex
	routes   map[string]scriptedResponse
	requests []recordedRequest
}

type scriptedResponse struct {
	status int
	body   string
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{routes: map[string]scriptedResponse{
		"HEAD /": {status: 200, body: "{}"},
	}}
}

func (t *scriptedTransport) on(method, pathPrefix string, status int, body string) {
	t.routes[method+" "+pathPrefix] = scriptedResponse{status: status, body: body}
}

func (t *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var body string
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	t.requests = append(t.requests, recordedRequest{method: req.Method, path: req.URL.Path, body: body})

	resp := scriptedResponse{status: 200, body: "{}"}
	for key, r := range t.routes {
		parts := strings.SplitN(key, " ", 2)
		if req.Method == parts[0] && strings.HasPrefix(req.URL.Path, parts[1]) && len(parts[1]) > 1 {
			resp = r
			break
		}
	}
	if req.Method == "HEAD" && req.URL.Path == "/" {
		resp = t.routes["HEAD /"]
	}

	return &http.Response{
		StatusCode: resp.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(resp.body)),
		Request:    req,
	}, nil
}

func (t *scriptedTransport) requestsTo(method, pathPrefix string) []recordedRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []recordedRequest
	for _, r := range t.requests {
		if r.method == method && strings.HasPrefix(r.path, pathPrefix) {
			out = append(out, r)
		}
	}
	return out
}

func newScriptedClient(t *testing.T, transport *scriptedTransport) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{
		Addresses: []string{"http://localhost:9200"},
		transport: transport,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewClient_RequiresAddresses(t *testing.T) {
	t.Parallel()
	_, err := NewClient(ClientConfig{}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestNewClient_PingFailureRejectsConnection(t *testing.T) {
	t.Parallel()
	transport := newScriptedTransport()
	transport.on("HEAD", "/", 503, "{}")

	_, err := NewClient(ClientConfig{
		Addresses: []string{"http://localhost:9200"},
		transport: transport,
	}, logging.NewNopLogger())
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestClient_PingTracksHealth(t *testing.T) {
	t.Parallel()
	transport := newScriptedTransport()
	c := newScriptedClient(t, transport)
	assert.True(t, c.IsHealthy())

	transport.on("HEAD", "/", 503, "{}")
	assert.Error(t, c.Ping(context.Background()))
	assert.False(t, c.IsHealthy())
}
