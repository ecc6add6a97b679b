package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/internal/infrastructure/search/opensearch"
)

// UtteranceSearcher finds indexed transcript utterances by full-text query.
type UtteranceSearcher interface {
	SearchUtterances(ctx context.Context, query string, opts opensearch.SearchOptions) (*opensearch.SearchResult, error)
}

// SearchHandler serves the transcript utterance search endpoint.
type SearchHandler struct {
	searcher UtteranceSearcher
	logger   logging.Logger
}

// NewSearchHandler builds the handler.
func NewSearchHandler(searcher UtteranceSearcher, logger logging.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, logger: logger}
}

// Search runs a full-text query over indexed utterances, optionally scoped
// to one transcript.
//
//	GET /api/v1/transcripts/search?q=headache&transcript_id=t-1&from=0&size=20&highlight=true
func (h *SearchHandler) Search(c *gin.Context) {
	opts := opensearch.SearchOptions{
		TranscriptID: c.Query("transcript_id"),
		From:         queryInt(c, "from", 0),
		Size:         queryInt(c, "size", 20),
		Highlight:    c.Query("highlight") == "true",
	}

	res, err := h.searcher.SearchUtterances(c.Request.Context(), c.Query("q"), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
