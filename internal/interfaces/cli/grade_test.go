package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTranscript(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestGradeSubmit(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte(`{"grading_id":"g-1","overall_score":74.2}`))
	}))
	t.Cleanup(srv.Close)

	path := writeTranscript(t, "[Student]: The patient is a 67-year-old man with sudden weakness.")
	out, err := runCommand(t, srv.URL, "grade", "submit", path, "--rubric", "neuro-oral", "--rubric-version", "1.2.0")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/gradings", gotPath)
	assert.Equal(t, "neuro-oral", gotBody["rubric_id"])
	assert.Equal(t, "1.2.0", gotBody["rubric_version"])
	assert.Contains(t, gotBody["raw_text"], "67-year-old")
	assert.Contains(t, out, `"grading_id": "g-1"`)
}

func TestGradeSubmit_RequiresRubricFlag(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{}`)
	path := writeTranscript(t, "[Student]: hello")

	_, err := runCommand(t, srv.URL, "grade", "submit", path)
	assert.Error(t, err)
}

func TestGradeSubmit_EmptyTranscript(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{}`)
	path := writeTranscript(t, "   \n")

	_, err := runCommand(t, srv.URL, "grade", "submit", path, "--rubric", "neuro-oral")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestGradeGet(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"grading_id":"g-7"}`))
	}))
	t.Cleanup(srv.Close)

	out, err := runCommand(t, srv.URL, "grade", "get", "g-7")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/gradings/g-7", gotPath)
	assert.Contains(t, out, "g-7")
}

func TestGradeGet_NotFound(t *testing.T) {
	srv := jsonServer(t, http.StatusNotFound, `{"code":"NOT_FOUND","message":"grading result not found"}`)

	_, err := runCommand(t, srv.URL, "grade", "get", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_FOUND")
}
