package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(name string) Entry {
	return Entry{
		Name:           name,
		Column:         "vector",
		MetricType:     "L2",
		ArtifactPrefix: "indexes/" + name,
		CreatedAt:      time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryCatalogReplaceSemantics(t *testing.T) {
	ctx := context.Background()
	cat := NewMemoryCatalog()

	require.NoError(t, cat.Create(ctx, testEntry("a_idx"), false))

	// Same name without replace must fail.
	err := cat.Create(ctx, testEntry("a_idx"), false)
	assert.ErrorIs(t, err, ErrIndexExists)

	// With replace the entry is overwritten.
	updated := testEntry("a_idx")
	updated.Column = "embeddings"
	require.NoError(t, cat.Create(ctx, updated, true))

	got, err := cat.Get(ctx, "a_idx")
	require.NoError(t, err)
	assert.Equal(t, "embeddings", got.Column)
}

func TestMemoryCatalogGetMissing(t *testing.T) {
	cat := NewMemoryCatalog()
	_, err := cat.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestMemoryCatalogDeleteAndList(t *testing.T) {
	ctx := context.Background()
	cat := NewMemoryCatalog()

	require.NoError(t, cat.Create(ctx, testEntry("b_idx"), false))
	require.NoError(t, cat.Create(ctx, testEntry("a_idx"), false))

	entries, err := cat.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a_idx", entries[0].Name)
	assert.Equal(t, "b_idx", entries[1].Name)

	require.NoError(t, cat.Delete(ctx, "a_idx"))
	require.NoError(t, cat.Delete(ctx, "a_idx")) // idempotent

	entries, err = cat.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b_idx", entries[0].Name)
}

// fakeDDB implements DDBClient over a map, honoring the
// attribute_not_exists condition used by Create.
type fakeDDB struct {
	items map[string]map[string]types.AttributeValue
}

func newFakeDDB() *fakeDDB {
	return &fakeDDB{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeDDB) keyOf(item map[string]types.AttributeValue) string {
	return item["index_name"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDDB) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	key := f.keyOf(params.Item)
	if params.ConditionExpression != nil {
		if _, ok := f.items[key]; ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	f.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDDB) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	key := f.keyOf(params.Key)
	item, ok := f.items[key]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeDDB) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	delete(f.items, f.keyOf(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDDB) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	out := &dynamodb.ScanOutput{}
	for _, item := range f.items {
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func TestDynamoCatalogReplaceSemantics(t *testing.T) {
	ctx := context.Background()
	cat := NewDynamoCatalog(newFakeDDB(), "vecbuild-indexes")

	require.NoError(t, cat.Create(ctx, testEntry("a_idx"), false))

	err := cat.Create(ctx, testEntry("a_idx"), false)
	assert.ErrorIs(t, err, ErrIndexExists)

	updated := testEntry("a_idx")
	updated.MetricType = "Cosine"
	require.NoError(t, cat.Create(ctx, updated, true))

	got, err := cat.Get(ctx, "a_idx")
	require.NoError(t, err)
	assert.Equal(t, "Cosine", got.MetricType)
	assert.Equal(t, testEntry("a_idx").CreatedAt, got.CreatedAt)
}

func TestDynamoCatalogGetMissing(t *testing.T) {
	cat := NewDynamoCatalog(newFakeDDB(), "vecbuild-indexes")
	_, err := cat.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestDynamoCatalogList(t *testing.T) {
	ctx := context.Background()
	cat := NewDynamoCatalog(newFakeDDB(), "vecbuild-indexes")

	require.NoError(t, cat.Create(ctx, testEntry("b_idx"), false))
	require.NoError(t, cat.Create(ctx, testEntry("a_idx"), false))

	entries, err := cat.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a_idx", entries[0].Name)
	assert.Equal(t, "b_idx", entries[1].Name)
}

func TestUnmarshalEntryMissingAttr(t *testing.T) {
	_, err := unmarshalEntry(map[string]types.AttributeValue{
		"index_name": &types.AttributeValueMemberS{Value: "x"},
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrIndexNotFound))
}
