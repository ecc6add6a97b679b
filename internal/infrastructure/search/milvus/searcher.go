package milvus

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/internal/intelligence/embed"
	"github.com/turtacn/opgrader/pkg/errors"
)

const searchEf = 64

// SemanticScorer matches phrases against an utterance corpus by embedding
// similarity.  Each scoring run embeds the corpus, stages the vectors in a
// throwaway partition, and searches phrase vectors against it, so runs
// never see each other's data.  It implements the question matcher's
// semantic port.
type SemanticScorer struct {
	client     *Client
	collection *UtteranceCollectionManager
	embedder   embed.Client
	logger     logging.Logger
}

// NewSemanticScorer builds the scorer.  Ensure must have been called on the
// collection manager first.
func NewSemanticScorer(client *Client, collection *UtteranceCollectionManager, embedder embed.Client, logger logging.Logger) *SemanticScorer {
	return &SemanticScorer{client: client, collection: collection, embedder: embedder, logger: logger}
}

// ScorePhrases returns the best corpus similarity per phrase, in [0, 1].
func (s *SemanticScorer) ScorePhrases(ctx context.Context, phrases []string, corpus []string) ([]float64, error) {
	hits, err := s.search(ctx, phrases, corpus)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(phrases))
	for i, h := range hits {
		scores[i] = h.score
	}
	return scores, nil
}

// BestMatch returns the corpus index most similar to the phrase, or -1 when
// nothing scores above zero.
func (s *SemanticScorer) BestMatch(ctx context.Context, phrase string, corpus []string) (int, error) {
	hits, err := s.search(ctx, []string{phrase}, corpus)
	if err != nil {
		return -1, err
	}
	if hits[0].score <= 0 {
		return -1, nil
	}
	return hits[0].index, nil
}

type hit struct {
	index int
	score float64
}

func (s *SemanticScorer) search(ctx context.Context, phrases []string, corpus []string) ([]hit, error) {
	misses := make([]hit, len(phrases))
	for i := range misses {
		misses[i] = hit{index: -1}
	}
	if len(phrases) == 0 || len(corpus) == 0 {
		return misses, nil
	}

	corpusVecs, err := s.embedder.Embed(ctx, corpus)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "corpus embedding failed")
	}
	phraseVecs, err := s.embedder.Embed(ctx, phrases)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "phrase embedding failed")
	}

	// The corpus index rides in the line field so search results can be
	// mapped back without a second query.
	partition := "score_" + uuid.NewString()[:8]
	indices := make([]int64, len(corpus))
	for i := range indices {
		indices[i] = int64(i)
	}
	if err := s.collection.InsertUtterances(ctx, partition, partition, indices, corpusVecs); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.collection.DropPartition(context.WithoutCancel(ctx), partition); err != nil {
			s.logger.Warn("Failed to drop scoring partition", logging.String("partition", partition), logging.Err(err))
		}
	}()

	vectors := make([]entity.Vector, len(phraseVecs))
	for i, v := range phraseVecs {
		vectors[i] = entity.FloatVector(v)
	}
	sp, err := entity.NewIndexHNSWSearchParam(searchEf)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build search params")
	}

	results, err := s.client.API().Search(ctx, UtteranceCollection, []string{partition}, "",
		[]string{fieldLine}, vectors, fieldVector, entity.COSINE, 1, sp)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "vector search failed")
	}
	if len(results) != len(phrases) {
		return nil, errors.New(errors.ErrCodeInternal,
			fmt.Sprintf("vector search returned %d result sets for %d phrases", len(results), len(phrases)))
	}

	hits := misses
	for i, res := range results {
		if res.Err != nil {
			return nil, errors.Wrap(res.Err, errors.ErrCodeInternal, "vector search failed")
		}
		if res.ResultCount == 0 || len(res.Scores) == 0 {
			continue
		}
		lineCol, ok := res.Fields.GetColumn(fieldLine).(*entity.ColumnInt64)
		if !ok || len(lineCol.Data()) == 0 {
			continue
		}
		hits[i] = hit{
			index: int(lineCol.Data()[0]),
			score: clampScore(float64(res.Scores[0])),
		}
	}
	return hits, nil
}

// Cosine similarity lands in [-1, 1]; anything negative carries no signal.
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
