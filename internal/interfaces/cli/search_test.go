package cli

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"total":1,"hits":[{"transcript_id":"t-1","line":3,"speaker":"patient","text":"it started this morning","score":4.2}]}`))
	}))
	t.Cleanup(srv.Close)

	out, err := runCommand(t, srv.URL, "search", "started", "this", "morning",
		"--transcript", "t-1", "--size", "5", "--highlight")
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "q=started+this+morning")
	assert.Contains(t, gotQuery, "transcript_id=t-1")
	assert.Contains(t, gotQuery, "size=5")
	assert.Contains(t, gotQuery, "highlight=true")
	assert.Contains(t, out, "it started this morning")
}

func TestSearch_TableOutput(t *testing.T) {
	srv := jsonServer(t, http.StatusOK,
		`{"total":1,"hits":[{"transcript_id":"t-1","line":3,"speaker":"patient","text":"it started this morning","score":4.2}]}`)

	out, err := runCommand(t, srv.URL, "search", "started", "-o", "table")
	require.NoError(t, err)

	assert.Contains(t, out, "TRANSCRIPT")
	assert.Contains(t, out, "patient")
	assert.Contains(t, out, "4.20")
}

func TestSearch_ServerError(t *testing.T) {
	srv := jsonServer(t, http.StatusBadRequest, `{"code":"INVALID_PARAM","message":"search query is required"}`)

	_, err := runCommand(t, srv.URL, "search", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_PARAM")
}
