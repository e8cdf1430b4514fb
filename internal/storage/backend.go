package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SortField names one sort key. Desc sorts descending.
type SortField struct {
	Field string
	Desc  bool
}

// FindOptions carries the optional knobs for a collection scan.
// CaseInsensitive requests a case-insensitive collation for sort/compare.
type FindOptions struct {
	Sort            []SortField
	Limit           int64
	CaseInsensitive bool
}

// UpsertOp is one entry of a bulk upsert: update the document matching
// Filter, inserting it when absent.
type UpsertOp struct {
	Filter bson.M
	Update bson.M
}

// BulkResult summarizes a bulk upsert.
type BulkResult struct {
	UpsertedCount int64
	ModifiedCount int64
}

// Backend is the document-store surface the access layer is built on.
// The Mongo implementation is the production one; the memory implementation
// mirrors it for unit tests.
type Backend interface {
	// Find returns the documents matching selector, in sort order, capped at
	// opts.Limit when non-zero.
	Find(ctx context.Context, collection string, selector bson.M, opts FindOptions) ([]bson.M, error)
	// FindOne returns the first document matching selector, or nil when absent.
	FindOne(ctx context.Context, collection string, selector bson.M) (bson.M, error)
	// BulkUpsert issues all ops as one unordered bulk write.
	BulkUpsert(ctx context.Context, collection string, ops []UpsertOp) (BulkResult, error)
	// InsertMany inserts docs as-is.
	InsertMany(ctx context.Context, collection string, docs []bson.M) error
	// DeleteMany removes every document matching selector.
	DeleteMany(ctx context.Context, collection string, selector bson.M) error
}

// NewID generates a fresh document id: time-ordered and collision resistant.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
