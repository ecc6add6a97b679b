package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/internal/infrastructure/search/opensearch"
	"github.com/turtacn/opgrader/pkg/errors"
)

type fakeSearcher struct {
	searchFn func(ctx context.Context, query string, opts opensearch.SearchOptions) (*opensearch.SearchResult, error)
}

func (f *fakeSearcher) SearchUtterances(ctx context.Context, query string, opts opensearch.SearchOptions) (*opensearch.SearchResult, error) {
	return f.searchFn(ctx, query, opts)
}

func newSearchRouter(s UtteranceSearcher) *gin.Engine {
	h := NewSearchHandler(s, logging.NewNopLogger())
	r := gin.New()
	r.GET("/transcripts/search", h.Search)
	return r
}

func TestSearchHandler_Search(t *testing.T) {
	var gotQuery string
	var gotOpts opensearch.SearchOptions
	s := &fakeSearcher{
		searchFn: func(_ context.Context, query string, opts opensearch.SearchOptions) (*opensearch.SearchResult, error) {
			gotQuery = query
			gotOpts = opts
			return &opensearch.SearchResult{Total: 1, Hits: []opensearch.UtteranceHit{
				{TranscriptID: "t-1", Line: 3, Text: "it started this morning"},
			}}, nil
		},
	}
	router := newSearchRouter(s)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/transcripts/search?q=started&transcript_id=t-1&from=10&size=5&highlight=true", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "started", gotQuery)
	assert.Equal(t, "t-1", gotOpts.TranscriptID)
	assert.Equal(t, 10, gotOpts.From)
	assert.Equal(t, 5, gotOpts.Size)
	assert.True(t, gotOpts.Highlight)
	assert.Contains(t, w.Body.String(), "it started this morning")
}

func TestSearchHandler_BlankQueryMapsTo400(t *testing.T) {
	s := &fakeSearcher{
		searchFn: func(_ context.Context, _ string, _ opensearch.SearchOptions) (*opensearch.SearchResult, error) {
			return nil, errors.InvalidParam("search query is required")
		},
	}
	router := newSearchRouter(s)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transcripts/search", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandler_MalformedPagingFallsBack(t *testing.T) {
	var gotOpts opensearch.SearchOptions
	s := &fakeSearcher{
		searchFn: func(_ context.Context, _ string, opts opensearch.SearchOptions) (*opensearch.SearchResult, error) {
			gotOpts = opts
			return &opensearch.SearchResult{}, nil
		},
	}
	router := newSearchRouter(s)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transcripts/search?q=x&from=abc&size=-2", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, gotOpts.From)
	assert.Equal(t, 20, gotOpts.Size)
}
