package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the CLI against a test server and captures stdout.
func runCommand(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--server", serverURL))
	err := cmd.Execute()
	return out.String(), err
}

// jsonServer replies to every request with the same canned JSON body.
func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRootCommand_Version(t *testing.T) {
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "dev")
}

func TestRootCommand_UnknownSubcommand(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"frobnicate"})

	assert.Error(t, cmd.Execute())
}

func TestFormatTable(t *testing.T) {
	out := formatTable(
		[]string{"VERSION", "STATUS"},
		[][]string{{"1.0.0", "approved"}, {"1.10.0", "draft"}},
	)

	assert.Contains(t, out, "VERSION  STATUS")
	assert.Contains(t, out, "-------")
	assert.Contains(t, out, "1.10.0   draft")
}

func TestFormatTable_EmptyHeaders(t *testing.T) {
	assert.Empty(t, formatTable(nil, [][]string{{"x"}}))
}

func TestFormatTable_ShortRowsPadded(t *testing.T) {
	out := formatTable([]string{"A", "B"}, [][]string{{"only-a"}})
	assert.Contains(t, out, "only-a")
}
