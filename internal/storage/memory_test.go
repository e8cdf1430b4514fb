package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMemoryBackendUpsertInsertAndUpdate(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	res, err := b.BulkUpsert(ctx, "widgets", []UpsertOp{{
		Filter: bson.M{"_id": "w1"},
		Update: bson.M{
			"$set":         bson.M{"name": "bolt"},
			"$setOnInsert": bson.M{"_created": 100},
		},
	}})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.UpsertedCount)
	require.Equal(t, int64(0), res.ModifiedCount)

	got, err := b.FindOne(ctx, "widgets", bson.M{"_id": "w1"})
	require.NoError(t, err)
	require.Equal(t, "bolt", got["name"])
	require.Equal(t, 100, got["_created"])

	// second write matches: $setOnInsert must not touch _created
	res, err = b.BulkUpsert(ctx, "widgets", []UpsertOp{{
		Filter: bson.M{"_id": "w1"},
		Update: bson.M{
			"$set":         bson.M{"name": "nut"},
			"$setOnInsert": bson.M{"_created": 999},
		},
	}})
	require.NoError(t, err)
	require.Equal(t, int64(0), res.UpsertedCount)
	require.Equal(t, int64(1), res.ModifiedCount)

	got, err = b.FindOne(ctx, "widgets", bson.M{"_id": "w1"})
	require.NoError(t, err)
	require.Equal(t, "nut", got["name"])
	require.Equal(t, 100, got["_created"])
}

func TestMemoryBackendArrayOperators(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	_, err := b.BulkUpsert(ctx, "widgets", []UpsertOp{{
		Filter: bson.M{"_id": "w1"},
		Update: bson.M{"$set": bson.M{"tags": []interface{}{"a", "b"}}},
	}})
	require.NoError(t, err)

	_, err = b.BulkUpsert(ctx, "widgets", []UpsertOp{{
		Filter: bson.M{"_id": "w1"},
		Update: bson.M{"$push": bson.M{"tags": "c"}},
	}})
	require.NoError(t, err)
	_, err = b.BulkUpsert(ctx, "widgets", []UpsertOp{{
		Filter: bson.M{"_id": "w1"},
		Update: bson.M{"$addToSet": bson.M{"tags": "c"}},
	}})
	require.NoError(t, err)
	_, err = b.BulkUpsert(ctx, "widgets", []UpsertOp{{
		Filter: bson.M{"_id": "w1"},
		Update: bson.M{"$pull": bson.M{"tags": "a"}},
	}})
	require.NoError(t, err)

	got, err := b.FindOne(ctx, "widgets", bson.M{"_id": "w1"})
	require.NoError(t, err)
	require.Equal(t, []interface{}{"b", "c"}, got["tags"])

	_, err = b.BulkUpsert(ctx, "widgets", []UpsertOp{{
		Filter: bson.M{"_id": "w1"},
		Update: bson.M{"$unset": bson.M{"tags": ""}},
	}})
	require.NoError(t, err)
	got, err = b.FindOne(ctx, "widgets", bson.M{"_id": "w1"})
	require.NoError(t, err)
	require.NotContains(t, got, "tags")
}

func TestMemoryBackendFindInSelectorSortLimit(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, b.InsertMany(ctx, "widgets", []bson.M{
		{"_id": "w1", "_account": "a1", "name": "Bravo"},
		{"_id": "w2", "_account": "a2", "name": "alpha"},
		{"_id": "w3", "_account": "a1", "name": "Charlie"},
	}))

	docs, err := b.Find(ctx, "widgets", bson.M{"_account": bson.M{"$in": []string{"a1"}}}, FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// case-insensitive sort puts "alpha" before "Bravo"
	docs, err = b.Find(ctx, "widgets", bson.M{}, FindOptions{
		Sort:            []SortField{{Field: "name"}},
		CaseInsensitive: true,
	})
	require.NoError(t, err)
	require.Equal(t, "w2", docs[0]["_id"])
	require.Equal(t, "w1", docs[1]["_id"])

	docs, err = b.Find(ctx, "widgets", bson.M{}, FindOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestMemoryBackendDeleteMany(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, b.InsertMany(ctx, "widgets", []bson.M{
		{"_id": "w1"}, {"_id": "w2"}, {"_id": "w3"},
	}))
	require.NoError(t, b.DeleteMany(ctx, "widgets", bson.M{"_id": bson.M{"$in": []string{"w1", "w3"}}}))
	require.Equal(t, 1, b.Count("widgets"))
	got, err := b.FindOne(ctx, "widgets", bson.M{"_id": "w2"})
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestMemoryBackendFindReturnsCopies(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, b.InsertMany(ctx, "widgets", []bson.M{{"_id": "w1", "name": "bolt"}}))
	got, err := b.FindOne(ctx, "widgets", bson.M{"_id": "w1"})
	require.NoError(t, err)
	got["name"] = "mutated"
	again, err := b.FindOne(ctx, "widgets", bson.M{"_id": "w1"})
	require.NoError(t, err)
	require.Equal(t, "bolt", again["name"])
}
