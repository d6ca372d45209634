package ddb

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annkit/catalog"
)

// mockDDBClient is an in-memory DynamoDB mock for testing.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{items: make(map[string]map[string]types.AttributeValue)}
}

func nameOf(item map[string]types.AttributeValue) string {
	return item["name"].(*types.AttributeValueMemberS).Value
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := nameOf(params.Item)
	prev, exists := m.items[name]
	failed := &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}

	switch aws.ToString(params.ConditionExpression) {
	case "attribute_not_exists(#n)":
		if exists {
			return nil, failed
		}
	case "revision = :rev":
		want := params.ExpressionAttributeValues[":rev"].(*types.AttributeValueMemberN).Value
		if !exists || prev["revision"].(*types.AttributeValueMemberN).Value != want {
			return nil, failed
		}
	}

	m.items[name] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &dynamodb.GetItemOutput{Item: m.items[nameOf(params.Key)]}, nil
}

func (m *mockDDBClient) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, nameOf(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockDDBClient) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := &dynamodb.ScanOutput{}
	for _, item := range m.items {
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	c := New(newMockDDBClient(), "annkit-catalog")

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	rec, err := c.Put(ctx, catalog.Record{
		Name:        "a",
		Algorithm:   "IVF_PQ",
		ElementType: "fp32",
		Version:     2,
		Dim:         16,
		Count:       100,
		Blob:        "indexes/a",
		Compression: "zstd",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.Revision)

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, rec.Algorithm, got.Algorithm)
	assert.Equal(t, rec.Version, got.Version)
	assert.Equal(t, rec.Dim, got.Dim)
	assert.Equal(t, rec.Count, got.Count)
	assert.Equal(t, rec.Blob, got.Blob)
	assert.Equal(t, rec.Revision, got.Revision)
	assert.True(t, rec.UpdatedAt.Equal(got.UpdatedAt))

	t.Run("Conflict", func(t *testing.T) {
		_, err := c.Put(ctx, catalog.Record{Name: "a"})
		assert.ErrorIs(t, err, catalog.ErrConflict)

		stale := got
		stale.Revision = 7
		_, err = c.Put(ctx, stale)
		assert.ErrorIs(t, err, catalog.ErrConflict)
	})

	t.Run("Update", func(t *testing.T) {
		next, err := c.Put(ctx, got)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), next.Revision)
	})

	t.Run("List", func(t *testing.T) {
		_, err := c.Put(ctx, catalog.Record{Name: "0"})
		require.NoError(t, err)
		list, err := c.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, []string{"0", "a"}, []string{list[0].Name, list[1].Name})
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, c.Delete(ctx, "a"))
		_, err := c.Get(ctx, "a")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})
}

func TestFromItem_Invalid(t *testing.T) {
	_, err := fromItem(map[string]types.AttributeValue{
		"name": &types.AttributeValueMemberN{Value: "1"},
	})
	assert.Error(t, err)
}
