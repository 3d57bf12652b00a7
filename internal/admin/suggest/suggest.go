// Package suggest implements the advisory "related canonical code" surface
// shown to an admin reviewing an UNMAPPED/AMBIGUOUS mapping_event. It is
// strictly display-only: nothing in internal/compare or internal/cancer
// ever imports this package, and no suggestion it returns is ever written
// back into coverage_code_alias/coverage_name_map automatically. An admin
// still has to click Approve.
//
// Grounded in the teacher's internal/search/qdrant.go (Qdrant-backed vector
// search over an embedding-bearing collection) and
// internal/service/embedding/embedding.go (the Provider interface and its
// OpenAI implementation), generalized from "similar decisions" to "similar
// canonical coverages."
package suggest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/qdrant/go-client/qdrant"

	"github.com/covercompare/engine/internal/apperr"
)

// EmbeddingProvider generates a vector embedding from free text. Mirrors
// the teacher's embedding.Provider shape, narrowed to the single method
// this package needs.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) (pgvector.Vector, error)
}

// Suggestion is one candidate canonical coverage code, ranked by cosine
// similarity against the reviewed event's raw coverage title.
type Suggestion struct {
	CoverageCode string
	CoverageName string
	Score        float32
}

// Index is a thin wrapper over a Qdrant collection of canonical coverage
// description embeddings, keyed by coverage_code.
type Index struct {
	client     *qdrant.Client
	collection string
	embed      EmbeddingProvider
}

// Config mirrors the teacher's QdrantConfig shape.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dims       uint64
}

func New(cfg Config, embed EmbeddingProvider) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("suggest: connect to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Index{client: client, collection: cfg.Collection, embed: embed}, nil
}

// EnsureCollection creates the collection if absent, sized for cosine
// similarity over dims-length embeddings.
func (i *Index) EnsureCollection(ctx context.Context, dims uint64) error {
	exists, err := i.client.CollectionExists(ctx, i.collection)
	if err != nil {
		return fmt.Errorf("suggest: check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	err = i.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: i.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dims,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("suggest: create collection %q: %w", i.collection, err)
	}
	return nil
}

// IndexCanonical upserts one canonical coverage's description embedding.
// Called by an offline reindex job, never by the compare path.
func (i *Index) IndexCanonical(ctx context.Context, coverageCode, coverageName, description string) error {
	vec, err := i.embed.Embed(ctx, description)
	if err != nil {
		return fmt.Errorf("suggest: embed canonical %s: %w", coverageCode, err)
	}

	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(coverageCode))
	_, err = i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(id.String()),
			Vectors: qdrant.NewVectorsDense(vec.Slice()),
			Payload: qdrant.NewValueMap(map[string]any{
				"coverage_code": coverageCode,
				"coverage_name": coverageName,
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("suggest: upsert canonical %s: %w", coverageCode, err)
	}
	return nil
}

// Suggest returns up to limit canonical coverage codes whose description
// embedding is closest to rawCoverageTitle. Advisory only: the caller
// (the admin workbench UI/API) must present these as suggestions requiring
// manual approval, never auto-apply them.
func (i *Index) Suggest(ctx context.Context, rawCoverageTitle string, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = 5
	}
	vec, err := i.embed.Embed(ctx, rawCoverageTitle)
	if err != nil {
		return nil, apperr.DataInsufficient("suggest: embed raw coverage title", map[string]any{"raw_title": rawCoverageTitle})
	}

	lim := uint64(limit)
	scored, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQueryDense(vec.Slice()),
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("suggest: qdrant query: %w", err)
	}

	out := make([]Suggestion, 0, len(scored))
	for _, sp := range scored {
		payload := sp.GetPayload()
		code := payload["coverage_code"].GetStringValue()
		name := payload["coverage_name"].GetStringValue()
		if code == "" {
			continue
		}
		out = append(out, Suggestion{CoverageCode: code, CoverageName: name, Score: sp.Score})
	}
	return out, nil
}

func (i *Index) Close() error {
	return i.client.Close()
}
