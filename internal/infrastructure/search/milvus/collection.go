package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

const (
	// UtteranceCollection holds one embedding per transcript line.
	UtteranceCollection = "grader_utterances"

	fieldID           = "id"
	fieldTranscriptID = "transcript_id"
	fieldLine         = "line"
	fieldVector       = "vector"
)

// CollectionConfig controls the utterance collection layout.
type CollectionConfig struct {
	Dim             int   `mapstructure:"dim"`
	ShardsNum       int32 `mapstructure:"shards_num"`
	HNSWM           int   `mapstructure:"hnsw_m"`
	HNSWEfConstruct int   `mapstructure:"hnsw_ef_construct"`
}

func applyCollectionDefaults(cfg *CollectionConfig) {
	if cfg.Dim == 0 {
		cfg.Dim = 768
	}
	if cfg.ShardsNum == 0 {
		cfg.ShardsNum = 2
	}
	if cfg.HNSWM == 0 {
		cfg.HNSWM = 16
	}
	if cfg.HNSWEfConstruct == 0 {
		cfg.HNSWEfConstruct = 200
	}
}

// UtteranceCollectionManager provisions and writes the utterance collection.
type UtteranceCollectionManager struct {
	client *Client
	config CollectionConfig
	logger logging.Logger
}

// NewUtteranceCollectionManager builds the collection manager.
func NewUtteranceCollectionManager(client *Client, cfg CollectionConfig, logger logging.Logger) *UtteranceCollectionManager {
	applyCollectionDefaults(&cfg)
	return &UtteranceCollectionManager{client: client, config: cfg, logger: logger}
}

// Dim returns the configured embedding dimension.
func (m *UtteranceCollectionManager) Dim() int { return m.config.Dim }

// Ensure creates the collection, its HNSW index, and loads it.  Safe to call
// on every startup.
func (m *UtteranceCollectionManager) Ensure(ctx context.Context) error {
	api := m.client.API()

	has, err := api.HasCollection(ctx, UtteranceCollection)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to check collection")
	}
	if !has {
		schema := entity.NewSchema().
			WithName(UtteranceCollection).
			WithDescription("per-line transcript utterance embeddings").
			WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeInt64).WithIsPrimaryKey(true).WithIsAutoID(true)).
			WithField(entity.NewField().WithName(fieldTranscriptID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(fieldLine).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(m.config.Dim)))

		if err := api.CreateCollection(ctx, schema, m.config.ShardsNum); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create collection")
		}

		idx, err := entity.NewIndexHNSW(entity.COSINE, m.config.HNSWM, m.config.HNSWEfConstruct)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to build index definition")
		}
		if err := api.CreateIndex(ctx, UtteranceCollection, fieldVector, idx, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create index")
		}
		m.logger.Info("Created utterance collection", logging.Int("dim", m.config.Dim))
	}

	if err := api.LoadCollection(ctx, UtteranceCollection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to load collection")
	}
	return nil
}

// InsertUtterances writes line embeddings for one transcript into the given
// partition.  Lines are 1-based transcript line numbers.
func (m *UtteranceCollectionManager) InsertUtterances(ctx context.Context, partition, transcriptID string, lines []int64, vectors [][]float32) error {
	if len(lines) != len(vectors) {
		return errors.InvalidParam("lines and vectors must have equal length")
	}
	if len(lines) == 0 {
		return nil
	}
	api := m.client.API()

	if partition != "" {
		if err := api.CreatePartition(ctx, UtteranceCollection, partition); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create partition")
		}
	}

	ids := make([]string, len(lines))
	for i := range ids {
		ids[i] = transcriptID
	}
	_, err := api.Insert(ctx, UtteranceCollection, partition,
		entity.NewColumnVarChar(fieldTranscriptID, ids),
		entity.NewColumnInt64(fieldLine, lines),
		entity.NewColumnFloatVector(fieldVector, m.config.Dim, vectors),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to insert utterances")
	}
	if err := api.Flush(ctx, UtteranceCollection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to flush collection")
	}
	return nil
}

// DropPartition removes a scoring partition and everything in it.
func (m *UtteranceCollectionManager) DropPartition(ctx context.Context, partition string) error {
	return m.client.API().DropPartition(ctx, UtteranceCollection, partition)
}

// DeleteTranscript removes every utterance vector of a transcript.
func (m *UtteranceCollectionManager) DeleteTranscript(ctx context.Context, transcriptID string) error {
	expr := fmt.Sprintf(`%s == "%s"`, fieldTranscriptID, transcriptID)
	if err := m.client.API().Delete(ctx, UtteranceCollection, "", expr); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete transcript vectors")
	}
	return nil
}
