package oracle_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/internal/intelligence/oracle"
)

func chatServer(t *testing.T, handler func(call int) string) *httptest.Server {
	t.Helper()
	var calls atomic.Int64
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := int(calls.Add(1))
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": handler(call)}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newOracle(endpoint string) oracle.Client {
	return oracle.NewClient(oracle.Config{
		Endpoint: endpoint,
		Model:    "extractor-v1",
		Bundle:   "bundle_2025_10_op@1.0.0",
	}, logging.NewNopLogger())
}

func TestExtract_ValidOutput(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, func(int) string {
		return `{"epa6": 4, "epa2": 2}`
	})
	defer srv.Close()

	out := newOracle(srv.URL).Extract(context.Background(), "epa", map[string]any{"section_scores": map[string]int{}})
	require.True(t, out.OK(), out.Reason())

	var decoded struct {
		EPA6 int `json:"epa6"`
		EPA2 int `json:"epa2"`
	}
	require.NoError(t, out.Decode(&decoded))
	assert.Equal(t, 4, decoded.EPA6)
	assert.Equal(t, 2, decoded.EPA2)
}

func TestExtract_RepairAfterSchemaViolation(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, func(call int) string {
		if call == 1 {
			return `{"epa6": 9, "epa2": 2}` // out of range
		}
		return `{"epa6": 5, "epa2": 3}`
	})
	defer srv.Close()

	out := newOracle(srv.URL).Extract(context.Background(), "epa", nil)
	require.True(t, out.OK(), out.Reason())
}

func TestExtract_FallbackWhenRepairAlsoInvalid(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, func(int) string {
		return `{"epa6": 9, "epa2": 2}`
	})
	defer srv.Close()

	out := newOracle(srv.URL).Extract(context.Background(), "epa", nil)
	assert.False(t, out.OK())
	assert.Contains(t, out.Reason(), "schema validation")
}

func TestExtract_FallbackOnNonJSONOutput(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, func(int) string {
		return "Sure! Here is the JSON you asked for:"
	})
	defer srv.Close()

	out := newOracle(srv.URL).Extract(context.Background(), "epa", nil)
	assert.False(t, out.OK())
}

func TestExtract_FallbackOnTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	out := newOracle(srv.URL).Extract(context.Background(), "epa", nil)
	assert.False(t, out.OK())
	assert.Contains(t, out.Reason(), "oracle unavailable")
}

func TestExtract_UnknownTask(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, func(int) string { return `{}` })
	defer srv.Close()

	out := newOracle(srv.URL).Extract(context.Background(), "no-such-task", nil)
	assert.False(t, out.OK())
	assert.Contains(t, out.Reason(), "unknown task")
}

func TestExtract_SectionerSchema(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, func(int) string {
		return `{"sections":[{"name":"HPI","start_line":2,"end_line":9,"evidence":[[2,3]]}]}`
	})
	defer srv.Close()

	out := newOracle(srv.URL).Extract(context.Background(), "sectioner", map[string]any{"text": "..."})
	require.True(t, out.OK(), out.Reason())
}
