package milvus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-chatbot-api/internal/application/rag"
)

func TestValidateVectors(t *testing.T) {
	docs := []rag.IndexedDocument{
		{ID: "a", Vector: []float32{1, 2, 3, 4}},
		{ID: "b", Vector: []float32{5, 6, 7, 8}},
	}

	dim, err := validateVectors(docs, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, dim)
}

func TestValidateVectors_DimensionMismatch(t *testing.T) {
	docs := []rag.IndexedDocument{
		{ID: "a", Vector: []float32{1, 2}},
	}

	_, err := validateVectors(docs, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match index dimension 4")
}

func TestValidateVectors_AdoptsFirstWhenUnset(t *testing.T) {
	docs := []rag.IndexedDocument{
		{ID: "a", Vector: []float32{1, 2, 3}},
		{ID: "b", Vector: []float32{4, 5, 6}},
	}

	dim, err := validateVectors(docs, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)

	// 未知维度下整批也必须一致
	docs = append(docs, rag.IndexedDocument{ID: "c", Vector: []float32{7}})
	_, err = validateVectors(docs, 0)
	require.Error(t, err)
}

func TestValidateVectors_EmptyVector(t *testing.T) {
	docs := []rag.IndexedDocument{{ID: "a"}}

	_, err := validateVectors(docs, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty vector")
}
