package opensearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

// UtteranceHit is one search result line.
type UtteranceHit struct {
	TranscriptID string   `json:"transcript_id"`
	Line         int      `json:"line"`
	Speaker      string   `json:"speaker"`
	Text         string   `json:"text"`
	Score        float64  `json:"score"`
	Highlights   []string `json:"highlights,omitempty"`
}

// SearchResult is a page of utterance hits.
type SearchResult struct {
	Total int64          `json:"total"`
	Hits  []UtteranceHit `json:"hits"`
}

// SearchOptions narrows and pages an utterance search.
type SearchOptions struct {
	TranscriptID string
	From         int
	Size         int
	Highlight    bool
}

// Searcher runs full-text queries over indexed utterances.
type Searcher struct {
	client *Client
	logger logging.Logger
}

// NewSearcher builds the searcher.
func NewSearcher(client *Client, logger logging.Logger) *Searcher {
	return &Searcher{client: client, logger: logger}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score     float64             `json:"_score"`
			Source    UtteranceDoc        `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchUtterances runs a match query over utterance text.
func (s *Searcher) SearchUtterances(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.InvalidParam("query is required")
	}
	if opts.Size == 0 {
		opts.Size = 20
	}

	body := map[string]any{
		"from": opts.From,
		"size": opts.Size,
	}
	match := map[string]any{"match": map[string]any{"text": query}}
	if opts.TranscriptID != "" {
		body["query"] = map[string]any{
			"bool": map[string]any{
				"must":   []any{match},
				"filter": []any{map[string]any{"term": map[string]any{"transcript_id": opts.TranscriptID}}},
			},
		}
	} else {
		body["query"] = match
	}
	if opts.Highlight {
		body["highlight"] = map[string]any{
			"fields":    map[string]any{"text": map[string]any{}},
			"pre_tags":  []string{"<em>"},
			"post_tags": []string{"</em>"},
		}
	}

	res, err := s.doSearch(ctx, UtteranceIndex, body)
	if err != nil {
		return nil, err
	}

	out := &SearchResult{Total: res.Hits.Total.Value}
	for _, h := range res.Hits.Hits {
		out.Hits = append(out.Hits, UtteranceHit{
			TranscriptID: h.Source.TranscriptID,
			Line:         h.Source.Line,
			Speaker:      h.Source.Speaker,
			Text:         h.Source.Text,
			Score:        h.Score,
			Highlights:   h.Highlight["text"],
		})
	}
	return out, nil
}

func (s *Searcher) doSearch(ctx context.Context, index string, body map[string]any) (*searchResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal query")
	}

	resp, err := opensearchapi.SearchRequest{
		Index: []string{index},
		Body:  strings.NewReader(string(raw)),
	}.Do(ctx, s.client.SDK())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "search failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, errors.New(errors.ErrCodeInternal, fmt.Sprintf("search returned %d", resp.StatusCode))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to decode search response")
	}
	return &out, nil
}

// LexicalScorer scores phrases against an ad-hoc corpus using OpenSearch's
// BM25 ranking.  Each run stages the corpus in a throwaway index, queries
// every phrase against it, and drops the index.  Raw top-hit scores are
// normalized by 10 and capped at 1, the same scale the in-process scorer
// uses, so match thresholds behave identically with either backend.
type LexicalScorer struct {
	client  *Client
	indexer *Indexer
	logger  logging.Logger
}

// NewLexicalScorer builds the scorer.
func NewLexicalScorer(client *Client, logger logging.Logger) *LexicalScorer {
	return &LexicalScorer{client: client, indexer: NewIndexer(client, logger), logger: logger}
}

// ScorePhrases implements the question matcher's lexical port.
func (s *LexicalScorer) ScorePhrases(ctx context.Context, phrases []string, corpus []string) ([]float64, error) {
	scores := make([]float64, len(phrases))
	if len(phrases) == 0 || len(corpus) == 0 {
		return scores, nil
	}

	index := "grader-score-" + uuid.NewString()[:8]
	if err := s.indexer.ensureIndex(ctx, index, utteranceMapping); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.indexer.deleteIndex(context.WithoutCancel(ctx), index); err != nil {
			s.logger.Warn("Failed to drop scoring index", logging.String("index", index), logging.Err(err))
		}
	}()

	docs := make([]UtteranceDoc, len(corpus))
	for i, text := range corpus {
		docs[i] = UtteranceDoc{TranscriptID: index, Line: i + 1, Text: text}
	}
	if err := s.indexer.bulkIndex(ctx, index, docs, true); err != nil {
		return nil, err
	}

	searcher := &Searcher{client: s.client, logger: s.logger}
	for i, phrase := range phrases {
		res, err := searcher.doSearch(ctx, index, map[string]any{
			"size":  1,
			"query": map[string]any{"match": map[string]any{"text": phrase}},
		})
		if err != nil {
			return nil, err
		}
		if len(res.Hits.Hits) > 0 {
			scores[i] = normalizeBM25(res.Hits.Hits[0].Score)
		}
	}
	return scores, nil
}

func normalizeBM25(raw float64) float64 {
	score := raw / 10
	if score > 1 {
		return 1
	}
	return score
}
