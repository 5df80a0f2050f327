package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	batches [][]string
	vectors func(texts []string) [][]float32
	err     error
}

func (f *fakeProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, texts)
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors(texts), nil
}

func (f *fakeProvider) Name() string { return "fake" }

func oneVectorPerText(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out
}

func TestEmbedBatches(t *testing.T) {
	provider := &fakeProvider{vectors: oneVectorPerText}
	svc := NewService(provider, 2)

	vectors, err := svc.Embed(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, vectors, 5)
	assert.Len(t, provider.batches, 3)
	assert.Equal(t, []string{"e"}, provider.batches[2])
}

func TestEmbedEmptyInput(t *testing.T) {
	svc := NewService(&fakeProvider{vectors: oneVectorPerText}, 10)
	vectors, err := svc.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedCountMismatch(t *testing.T) {
	provider := &fakeProvider{vectors: func(texts []string) [][]float32 {
		return [][]float32{{1}} // always one vector, regardless of input size
	}}
	svc := NewService(provider, 10)

	_, err := svc.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCountMismatch)
}

func TestEmbedProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("rate limited")}
	svc := NewService(provider, 10)

	_, err := svc.Embed(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "rate limited")
}

func TestEmbedSingleNoVector(t *testing.T) {
	provider := &fakeProvider{vectors: func(texts []string) [][]float32 {
		return [][]float32{{}} // provider returned an empty vector
	}}
	svc := NewService(provider, 10)

	vector, err := svc.EmbedSingle(context.Background(), "probe text")
	require.NoError(t, err)
	assert.Nil(t, vector)
}

func TestEmbedSingle(t *testing.T) {
	provider := &fakeProvider{vectors: oneVectorPerText}
	svc := NewService(provider, 10)

	vector, err := svc.EmbedSingle(context.Background(), "probe text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0}, vector)
}
