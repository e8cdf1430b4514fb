package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBackend implements Backend on a MongoDB database handle.
type MongoBackend struct {
	db *mongo.Database
}

func NewMongoBackend(db *mongo.Database) *MongoBackend {
	return &MongoBackend{db: db}
}

// caseInsensitive is the collation used when a caller asks for
// case-insensitive sort/compare (strength 2: ignores case, keeps accents).
var caseInsensitive = options.Collation{Locale: "en", Strength: 2}

func (b *MongoBackend) Find(ctx context.Context, collection string, selector bson.M, fo FindOptions) ([]bson.M, error) {
	findOpts := options.Find()
	if len(fo.Sort) > 0 {
		sort := bson.D{}
		for _, s := range fo.Sort {
			dir := 1
			if s.Desc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: s.Field, Value: dir})
		}
		findOpts.SetSort(sort)
	}
	if fo.Limit > 0 {
		findOpts.SetLimit(fo.Limit)
	}
	if fo.CaseInsensitive {
		findOpts.SetCollation(&caseInsensitive)
	}
	cur, err := b.db.Collection(collection).Find(ctx, selector, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []bson.M{}
	for cur.Next(ctx) {
		var d bson.M
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, cur.Err()
}

func (b *MongoBackend) FindOne(ctx context.Context, collection string, selector bson.M) (bson.M, error) {
	var d bson.M
	err := b.db.Collection(collection).FindOne(ctx, selector).Decode(&d)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

func (b *MongoBackend) BulkUpsert(ctx context.Context, collection string, ops []UpsertOp) (BulkResult, error) {
	models := make([]mongo.WriteModel, 0, len(ops))
	for _, op := range ops {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(op.Filter).
			SetUpdate(op.Update).
			SetUpsert(true))
	}
	res, err := b.db.Collection(collection).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return BulkResult{}, err
	}
	return BulkResult{UpsertedCount: res.UpsertedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (b *MongoBackend) InsertMany(ctx context.Context, collection string, docs []bson.M) error {
	if len(docs) == 0 {
		return nil
	}
	payload := make([]interface{}, 0, len(docs))
	for _, d := range docs {
		payload = append(payload, d)
	}
	_, err := b.db.Collection(collection).InsertMany(ctx, payload)
	return err
}

func (b *MongoBackend) DeleteMany(ctx context.Context, collection string, selector bson.M) error {
	_, err := b.db.Collection(collection).DeleteMany(ctx, selector)
	return err
}
