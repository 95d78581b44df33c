package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeterministicProvider(t *testing.T) {
	t.Run("Valid dimension", func(t *testing.T) {
		provider, err := NewDeterministicProvider(8)

		require.NoError(t, err)
		assert.Equal(t, 8, provider.Dimension())
	})

	t.Run("Invalid dimension fails", func(t *testing.T) {
		provider, err := NewDeterministicProvider(0)

		assert.Error(t, err)
		assert.Nil(t, provider)
	})
}

func TestDeterministicEmbed(t *testing.T) {
	provider, err := NewDeterministicProvider(16)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("Same text same vector", func(t *testing.T) {
		first, err := provider.Embed(ctx, "什么是RAG技术？")
		require.NoError(t, err)
		second, err := provider.Embed(ctx, "什么是RAG技术？")
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("Different text different vector", func(t *testing.T) {
		first, err := provider.Embed(ctx, "向量检索")
		require.NoError(t, err)
		second, err := provider.Embed(ctx, "知识图谱")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("Empty text fails", func(t *testing.T) {
		vector, err := provider.Embed(ctx, "")

		assert.Error(t, err)
		assert.Nil(t, vector)
	})

	t.Run("Unit length", func(t *testing.T) {
		vector, err := provider.Embed(ctx, "some text")
		require.NoError(t, err)
		require.Len(t, vector, 16)

		var norm float64
		for _, value := range vector {
			norm += float64(value) * float64(value)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	})
}

func TestDeterministicEmbedBatch(t *testing.T) {
	provider, err := NewDeterministicProvider(8)
	require.NoError(t, err)
	ctx := context.Background()

	texts := []string{"第一段", "第二段", "第三段"}
	vectors, err := provider.EmbedBatch(ctx, texts)

	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, text := range texts {
		single, err := provider.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, vectors[i], "Expected batch order to match input order")
	}
}
