// Package refguard probes for live references to candidate document ids
// before a deletion is allowed to proceed.
package refguard

import (
	"context"

	"github.com/docgate/docgate/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
)

// Descriptor names a (collection, field) pair that may hold references to
// a document id.
type Descriptor struct {
	Collection string `json:"collection"`
	Field      string `json:"field"`
}

// Usage reports the documents of one collection that still reference a
// candidate id.
type Usage struct {
	Collection string   `json:"collection"`
	IDs        []string `json:"ids"`
}

type Guard struct {
	backend storage.Backend
}

func NewGuard(backend storage.Backend) *Guard {
	return &Guard{backend: backend}
}

// UsedBy runs a membership probe per descriptor and reports, in descriptor
// order, every collection still referencing one of the candidate ids. An
// empty report means deletion may proceed.
func (g *Guard) UsedBy(ctx context.Context, candidateIDs []string, descriptors []Descriptor) ([]Usage, error) {
	report := []Usage{}
	for _, d := range descriptors {
		docs, err := g.backend.Find(ctx, d.Collection, bson.M{d.Field: bson.M{"$in": candidateIDs}}, storage.FindOptions{})
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			continue
		}
		ids := make([]string, 0, len(docs))
		for _, doc := range docs {
			if id, ok := doc["_id"].(string); ok {
				ids = append(ids, id)
			}
		}
		report = append(report, Usage{Collection: d.Collection, IDs: ids})
	}
	return report, nil
}
