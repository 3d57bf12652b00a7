package suggest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covercompare/engine/internal/admin/suggest"
	"github.com/covercompare/engine/internal/apperr"
)

type fakeEmbedder struct {
	vec pgvector.Vector
	err error
}

func (f fakeEmbedder) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	return f.vec, f.err
}

func newTestIndex(t *testing.T, embed suggest.EmbeddingProvider) *suggest.Index {
	t.Helper()
	idx, err := suggest.New(suggest.Config{
		Host:       "localhost",
		Port:       16334, // non-standard port, no server running: gRPC lazy-connects
		Collection: "test_canonicals",
		Dims:       8,
	}, embed)
	require.NoError(t, err, "New should succeed; qdrant-go lazy-connects over gRPC")
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSuggestReturnsDataInsufficientWhenEmbeddingFails(t *testing.T) {
	idx := newTestIndex(t, fakeEmbedder{err: errors.New("embedding backend unreachable")})

	_, err := idx.Suggest(context.Background(), "암진단특약", 5)
	require.Error(t, err)
	assert.Equal(t, apperr.KindDataInsufficient, apperr.KindOf(err))
}

func TestSuggestAcceptsNonPositiveLimitBeforeEmbedFailure(t *testing.T) {
	idx := newTestIndex(t, fakeEmbedder{err: errors.New("no server running, early return expected")})

	// With no server running the embed call itself still executes; limit
	// defaulting only matters once the query reaches qdrant, so this
	// exercises that Suggest never panics on a zero/negative limit before
	// it gets that far.
	_, err := idx.Suggest(context.Background(), "일반암진단비", 0)
	require.Error(t, err)
}

func TestIndexCanonicalWrapsEmbedFailure(t *testing.T) {
	idx := newTestIndex(t, fakeEmbedder{err: errors.New("embedding backend unreachable")})

	err := idx.IndexCanonical(context.Background(), "CA_DIAG_GENERAL", "일반암진단비", "암으로 진단시 지급")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed canonical")
}
