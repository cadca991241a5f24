package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/mihir1816/teaching-content-generator/internal/vector"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

// Client is the production vector index on Milvus/Zilliz. All sources share
// one collection; isolation comes from a namespace field that every query
// filters on. The chunk id primary key makes Upsert replace-not-duplicate.
type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

func NewClient(endpoint, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) EnsureCollection(ctx context.Context) error {
	has, err := c.client.HasCollection(ctx, c.collectionName)
	if err != nil {
		return errs.Wrap(errs.ErrIndex, fmt.Errorf("failed to check collection: %w", err))
	}
	if has {
		logger.Info("Collection already exists", zap.String("collection", c.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: c.collectionName,
		Description:    "Teaching source chunk embeddings",
		Fields: []*entity.Field{
			{
				Name:       "chunk_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "namespace",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "256"},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", c.vectorDim),
				},
			},
			{
				Name:       "text",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "8192"},
			},
			{
				Name:       "source_key",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "256"},
			},
			{
				Name:     "sequence",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	if err := c.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return errs.Wrap(errs.ErrIndex, fmt.Errorf("failed to create collection: %w", err))
	}

	idx := entity.NewScalarIndex()
	if err := c.client.CreateIndex(ctx, c.collectionName, "namespace", idx, false); err != nil {
		return errs.Wrap(errs.ErrIndex, fmt.Errorf("failed to index namespace field: %w", err))
	}

	vecIdx, err := entity.NewIndexIvfFlat(entity.COSINE, 1024)
	if err != nil {
		return errs.Wrap(errs.ErrIndex, fmt.Errorf("failed to build index spec: %w", err))
	}
	if err := c.client.CreateIndex(ctx, c.collectionName, "embedding", vecIdx, false); err != nil {
		return errs.Wrap(errs.ErrIndex, fmt.Errorf("failed to create vector index: %w", err))
	}

	if err := c.client.LoadCollection(ctx, c.collectionName, false); err != nil {
		return errs.Wrap(errs.ErrIndex, fmt.Errorf("failed to load collection: %w", err))
	}

	logger.Info("Collection created and loaded", zap.String("collection", c.collectionName))
	return nil
}

func (c *Client) Upsert(ctx context.Context, namespace string, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(records))
	namespaces := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	texts := make([]string, len(records))
	sourceKeys := make([]string, len(records))
	sequences := make([]int64, len(records))

	for i, r := range records {
		chunkIDs[i] = r.ChunkID
		namespaces[i] = namespace
		embeddings[i] = r.Vector
		texts[i] = r.Metadata["text"]
		sourceKeys[i] = r.Metadata["source_key"]
		sequences[i] = parseSequence(r.Metadata["sequence"])
	}

	_, err := c.client.Upsert(
		ctx,
		c.collectionName,
		"",
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnVarChar("namespace", namespaces),
		entity.NewColumnFloatVector("embedding", c.vectorDim, embeddings),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("source_key", sourceKeys),
		entity.NewColumnInt64("sequence", sequences),
	)
	if err != nil {
		return errs.Wrap(errs.ErrIndex, fmt.Errorf("failed to upsert chunks: %w", err))
	}

	if err := c.client.Flush(ctx, c.collectionName, false); err != nil {
		return errs.Wrap(errs.ErrIndex, fmt.Errorf("failed to flush: %w", err))
	}

	logger.Info("Chunks upserted into vector index",
		zap.String("namespace", namespace),
		zap.Int("count", len(records)),
	)
	return nil
}

func (c *Client) Query(ctx context.Context, namespace string, queryVec []float32, topK int) ([]vector.Match, error) {
	expr := fmt.Sprintf(`namespace == "%s"`, escapeExpr(namespace))

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := c.client.Search(
		ctx,
		c.collectionName,
		[]string{},
		expr,
		[]string{"chunk_id", "text", "source_key"},
		[]entity.Vector{entity.FloatVector(queryVec)},
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIndex, fmt.Errorf("failed to search: %w", err))
	}

	matches := make([]vector.Match, 0)
	for _, sr := range searchResult {
		chunkIDCol := sr.Fields.GetColumn("chunk_id")
		textCol := sr.Fields.GetColumn("text")
		sourceKeyCol := sr.Fields.GetColumn("source_key")

		for i := 0; i < sr.ResultCount; i++ {
			chunkID, _ := chunkIDCol.Get(i)
			text, _ := textCol.Get(i)
			sourceKey, _ := sourceKeyCol.Get(i)

			matches = append(matches, vector.Match{
				ChunkID: chunkID.(string),
				Score:   sr.Scores[i],
				Metadata: map[string]string{
					"text":       text.(string),
					"source_key": sourceKey.(string),
				},
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.String("namespace", namespace),
		zap.Int("topK", topK),
		zap.Int("results", len(matches)),
	)
	return matches, nil
}

func parseSequence(s string) int64 {
	var seq int64
	fmt.Sscanf(s, "%d", &seq)
	return seq
}

func escapeExpr(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
