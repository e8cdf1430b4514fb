// Package trash is the soft-delete engine: documents removed recoverably are
// moved into a holding collection under a composite key, from where they can
// be listed, restored to their origin collection, or purged for good.
package trash

import (
	"context"
	"time"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/docstore"
	"github.com/docgate/docgate/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
)

// DefaultCollection is the trash holding collection name.
const DefaultCollection = "trash"

// Sink receives purged trash records before they are deleted for good.
// Implemented by the object-storage archive; optional.
type Sink interface {
	Archive(ctx context.Context, record bson.M) error
}

type Vault struct {
	backend    storage.Backend
	collection string
	sink       Sink
}

// New builds a vault over the given backend. collection defaults to
// DefaultCollection when empty; sink may be nil.
func New(backend storage.Backend, collection string, sink Sink) *Vault {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Vault{backend: backend, collection: collection, sink: sink}
}

var now = func() time.Time { return time.Now().UTC() }

// ID is the composite trash key for a document: deterministic, and
// collision-free across origin collections.
func ID(collection, originalID string) string {
	return collection + "::" + originalID
}

// Put moves the documents with the given ids out of collection into the
// vault. scope restricts the fetch to the caller's writable accounts; ids
// outside it are simply not moved. Move is two-step (upsert into trash, then
// delete the originals) and not atomic: a crash in between leaves the
// document in both places, with the trash copy authoritative.
func (v *Vault) Put(ctx context.Context, caller access.Caller, collection string, ids []string, scope bson.M) error {
	selector := bson.M{}
	for k, val := range scope {
		selector[k] = val
	}
	selector["_id"] = bson.M{"$in": ids}
	docs, err := v.backend.Find(ctx, collection, selector, storage.FindOptions{})
	if err != nil {
		return storeErr("fetch for trash", err)
	}
	return v.PutDocs(ctx, caller, collection, docs)
}

// PutDocs moves already-loaded documents into the vault. Re-trashing an id
// mid-transition is idempotent at the trash-record level: identity and audit
// fields are set-on-insert only, the snapshot and _modified always refresh.
func (v *Vault) PutDocs(ctx context.Context, caller access.Caller, collection string, docs []bson.M) error {
	if len(docs) == 0 {
		return nil
	}
	ts := now()
	ops := make([]storage.UpsertOp, 0, len(docs))
	originIDs := make([]string, 0, len(docs))
	for _, doc := range docs {
		oid, ok := doc["_id"].(string)
		if !ok || oid == "" {
			continue
		}
		originIDs = append(originIDs, oid)
		set := bson.M{"o": doc, "_modified": ts}
		if acct, ok := doc["_account"].(string); ok {
			// keep trash records account-scoped like their originals
			set["_account"] = acct
		}
		ops = append(ops, storage.UpsertOp{
			Filter: bson.M{"_id": ID(collection, oid)},
			Update: bson.M{
				"$set": set,
				"$setOnInsert": bson.M{
					"col":        collection,
					"oid":        oid,
					"_created":   ts,
					"_createdBy": caller.UserID,
				},
			},
		})
	}
	if len(ops) == 0 {
		return nil
	}
	if _, err := v.backend.BulkUpsert(ctx, v.collection, ops); err != nil {
		return storeErr("move to trash", err)
	}
	if err := v.backend.DeleteMany(ctx, collection, bson.M{"_id": bson.M{"$in": originIDs}}); err != nil {
		return storeErr("delete originals", err)
	}
	return nil
}

// Restore moves the named trash records back into their origin collections,
// one bulk insert per collection, then deletes the trash entries. Like Put,
// the two steps are not atomic; a crash in between leaves a duplicate.
func (v *Vault) Restore(ctx context.Context, trashIDs []string) error {
	if len(trashIDs) == 0 {
		return docstore.ErrUsage("no trash ids supplied")
	}
	records, err := v.backend.Find(ctx, v.collection, bson.M{"_id": bson.M{"$in": trashIDs}}, storage.FindOptions{})
	if err != nil {
		return storeErr("load trash records", err)
	}
	byCollection := map[string][]bson.M{}
	for _, rec := range records {
		col, _ := rec["col"].(string)
		snapshot := toDoc(rec["o"])
		if col == "" || snapshot == nil {
			continue
		}
		byCollection[col] = append(byCollection[col], snapshot)
	}
	for col, docs := range byCollection {
		if err := v.backend.InsertMany(ctx, col, docs); err != nil {
			return storeErr("restore into "+col, err)
		}
	}
	if err := v.backend.DeleteMany(ctx, v.collection, bson.M{"_id": bson.M{"$in": trashIDs}}); err != nil {
		return storeErr("delete trash records", err)
	}
	return nil
}

// Pluck copies a single trashed snapshot back into its origin collection
// without removing the trash entry. Fails when the trash id does not exist.
func (v *Vault) Pluck(ctx context.Context, trashID string) (bson.M, error) {
	rec, err := v.backend.FindOne(ctx, v.collection, bson.M{"_id": trashID})
	if err != nil {
		return nil, storeErr("load trash record", err)
	}
	if rec == nil {
		return nil, docstore.ErrNotFound("trash record %q not found", trashID)
	}
	col, _ := rec["col"].(string)
	snapshot := toDoc(rec["o"])
	if col == "" || snapshot == nil {
		return nil, docstore.ErrNotFound("trash record %q has no snapshot", trashID)
	}
	if err := v.backend.InsertMany(ctx, col, []bson.M{snapshot}); err != nil {
		return nil, storeErr("copy into "+col, err)
	}
	return snapshot, nil
}

// EmptyFilter narrows a purge. All zero values means: purge everything.
type EmptyFilter struct {
	Collection  string
	OriginalIDs []string
	TrashIDs    []string
}

// Empty permanently deletes the matching trash records. When a sink is
// configured the purged records are archived to it first, so even an
// unscoped purge leaves a copy in object storage. Gating an unscoped purge
// to privileged callers is the boundary's job.
func (v *Vault) Empty(ctx context.Context, filter EmptyFilter) error {
	selector := bson.M{}
	if filter.Collection != "" {
		selector["col"] = filter.Collection
	}
	if len(filter.OriginalIDs) > 0 {
		selector["oid"] = bson.M{"$in": filter.OriginalIDs}
	}
	if len(filter.TrashIDs) > 0 {
		selector["_id"] = bson.M{"$in": filter.TrashIDs}
	}
	if v.sink != nil {
		records, err := v.backend.Find(ctx, v.collection, selector, storage.FindOptions{})
		if err != nil {
			return storeErr("load trash records", err)
		}
		for _, rec := range records {
			if err := v.sink.Archive(ctx, rec); err != nil {
				return storeErr("archive trash record", err)
			}
		}
	}
	if err := v.backend.DeleteMany(ctx, v.collection, selector); err != nil {
		return storeErr("purge trash", err)
	}
	return nil
}

// ListOptions scope and shape a trash listing. Accounts nil means unscoped
// (privileged callers only at the boundary).
type ListOptions struct {
	Accounts        []string
	Where           bson.M
	Sort            []storage.SortField
	Limit           int64
	CaseInsensitive bool
}

// List returns trash records, scoped and sorted per opts.
func (v *Vault) List(ctx context.Context, opts ListOptions) ([]bson.M, error) {
	selector := bson.M{}
	for k, val := range opts.Where {
		selector[k] = val
	}
	if opts.Accounts != nil {
		selector["_account"] = bson.M{"$in": opts.Accounts}
	}
	records, err := v.backend.Find(ctx, v.collection, selector, storage.FindOptions{
		Sort:            opts.Sort,
		Limit:           opts.Limit,
		CaseInsensitive: opts.CaseInsensitive,
	})
	if err != nil {
		return nil, storeErr("list trash", err)
	}
	return records, nil
}

// Get returns one trash record within the given account scope, or the
// empty-object sentinel when absent.
func (v *Vault) Get(ctx context.Context, trashID string, accounts []string) (bson.M, error) {
	selector := bson.M{"_id": trashID}
	if accounts != nil {
		selector["_account"] = bson.M{"$in": accounts}
	}
	rec, err := v.backend.FindOne(ctx, v.collection, selector)
	if err != nil {
		return nil, storeErr("load trash record", err)
	}
	if rec == nil {
		return bson.M{}, nil
	}
	return rec, nil
}

func toDoc(v interface{}) bson.M {
	switch m := v.(type) {
	case bson.M:
		return m
	case map[string]interface{}:
		return m
	}
	return nil
}

func storeErr(op string, err error) error {
	return docstore.ErrStore(op, err)
}
