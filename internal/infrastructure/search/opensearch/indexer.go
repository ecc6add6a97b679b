package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

// UtteranceIndex is the persistent per-line transcript index.
const UtteranceIndex = "grader-utterances"

// utteranceMapping keeps text analyzed with english stemming so question
// phrasing variants still match.
const utteranceMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 1,
    "analysis": {
      "analyzer": {
        "utterance_text": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "porter_stem"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "transcript_id": {"type": "keyword"},
      "line": {"type": "integer"},
      "speaker": {"type": "keyword"},
      "text": {"type": "text", "analyzer": "utterance_text"}
    }
  }
}`

// UtteranceDoc is one indexed transcript line.
type UtteranceDoc struct {
	TranscriptID string `json:"transcript_id"`
	Line         int    `json:"line"`
	Speaker      string `json:"speaker,omitempty"`
	Text         string `json:"text"`
}

// Indexer manages the utterance index and writes transcript lines into it.
type Indexer struct {
	client *Client
	logger logging.Logger
}

// NewIndexer builds the indexer.
func NewIndexer(client *Client, logger logging.Logger) *Indexer {
	return &Indexer{client: client, logger: logger}
}

// EnsureIndex creates the utterance index if it does not exist.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	return i.ensureIndex(ctx, UtteranceIndex, utteranceMapping)
}

func (i *Indexer) ensureIndex(ctx context.Context, name, mapping string) error {
	exists, err := opensearchapi.IndicesExistsRequest{Index: []string{name}}.Do(ctx, i.client.SDK())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to check index")
	}
	defer exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}

	resp, err := opensearchapi.IndicesCreateRequest{
		Index: name,
		Body:  strings.NewReader(mapping),
	}.Do(ctx, i.client.SDK())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create index")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return errors.New(errors.ErrCodeInternal, fmt.Sprintf("index creation returned %d", resp.StatusCode))
	}

	i.logger.Info("Created index", logging.String("index", name))
	return nil
}

// IndexUtterances bulk-writes the lines of one transcript.  Document IDs are
// transcript-scoped so re-indexing a transcript overwrites cleanly.
func (i *Indexer) IndexUtterances(ctx context.Context, docs []UtteranceDoc) error {
	return i.bulkIndex(ctx, UtteranceIndex, docs, false)
}

func (i *Indexer) bulkIndex(ctx context.Context, index string, docs []UtteranceDoc, refresh bool) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		meta := fmt.Sprintf(`{"index":{"_index":%q,"_id":"%s:%d"}}`, index, doc.TranscriptID, doc.Line)
		buf.WriteString(meta)
		buf.WriteByte('\n')
		body, err := json.Marshal(doc)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal utterance")
		}
		buf.Write(body)
		buf.WriteByte('\n')
	}

	req := opensearchapi.BulkRequest{Body: &buf}
	if refresh {
		req.Refresh = "true"
	}
	resp, err := req.Do(ctx, i.client.SDK())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "bulk index failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return errors.New(errors.ErrCodeInternal, fmt.Sprintf("bulk index returned %d", resp.StatusCode))
	}

	var result struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to decode bulk response")
	}
	if result.Errors {
		return errors.New(errors.ErrCodeInternal, "bulk index reported item failures")
	}

	i.logger.Debug("Indexed utterances", logging.Int("count", len(docs)), logging.String("index", index))
	return nil
}

// DeleteTranscript removes every utterance of a transcript from the index.
func (i *Indexer) DeleteTranscript(ctx context.Context, transcriptID string) error {
	query := fmt.Sprintf(`{"query":{"term":{"transcript_id":%q}}}`, transcriptID)
	resp, err := opensearchapi.DeleteByQueryRequest{
		Index: []string{UtteranceIndex},
		Body:  strings.NewReader(query),
	}.Do(ctx, i.client.SDK())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "delete by query failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return errors.New(errors.ErrCodeInternal, fmt.Sprintf("delete by query returned %d", resp.StatusCode))
	}
	return nil
}

func (i *Indexer) deleteIndex(ctx context.Context, name string) error {
	resp, err := opensearchapi.IndicesDeleteRequest{Index: []string{name}}.Do(ctx, i.client.SDK())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete index")
	}
	defer resp.Body.Close()
	return nil
}
