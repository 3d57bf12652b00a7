package embedding_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covercompare/engine/internal/embedding"
)

func TestNewOpenAIProviderRequiresAPIKey(t *testing.T) {
	p, err := embedding.NewOpenAIProvider("", "text-embedding-3-small", 1536)
	require.Error(t, err)
	assert.Nil(t, p)
}

func TestNewOpenAIProviderDimensions(t *testing.T) {
	p, err := embedding.NewOpenAIProvider("sk-test", "text-embedding-3-small", 1024)
	require.NoError(t, err)
	assert.Equal(t, 1024, p.Dimensions())

	p, err = embedding.NewOpenAIProvider("sk-test", "text-embedding-3-small", 0)
	require.NoError(t, err)
	assert.Equal(t, 1536, p.Dimensions(), "zero dimensions must default to 1536")
}

func TestNoopProviderReturnsErrNoProvider(t *testing.T) {
	var p embedding.NoopProvider
	_, err := p.Embed(context.Background(), "암보장특약")
	assert.True(t, errors.Is(err, embedding.ErrNoProvider))
}
