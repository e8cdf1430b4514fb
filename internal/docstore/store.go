// Package docstore is the account-scoped CRUD engine over a schemaless
// document backend. Every operation takes an explicit caller; selectors and
// writes are scoped to the account set the access gate permits for that
// caller at the operation's level.
package docstore

import (
	"context"

	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/merge"
	"github.com/docgate/docgate/internal/refguard"
	"github.com/docgate/docgate/internal/storage"
	"github.com/docgate/docgate/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson"
)

// Config is the store's behavior switchboard, fixed at construction.
type Config struct {
	// SafeDelete redirects every remove into the trash vault; the per-request
	// recoverable flag can still opt in when this is off.
	SafeDelete bool
	// GlobalCollections are exempt from account scoping.
	GlobalCollections []string
}

// Trasher is the soft-delete hook Remove delegates to. Implemented by
// trash.Vault; an interface here keeps the dependency one-directional.
type Trasher interface {
	Put(ctx context.Context, caller access.Caller, collection string, ids []string, scope bson.M) error
}

// Store exposes find/put/remove over arbitrarily-named collections.
type Store struct {
	cfg     Config
	backend storage.Backend
	gate    *access.Gate
	guard   *refguard.Guard
	trasher Trasher
}

func New(cfg Config, backend storage.Backend, gate *access.Gate, trasher Trasher) *Store {
	return &Store{
		cfg:     cfg,
		backend: backend,
		gate:    gate,
		guard:   refguard.NewGuard(backend),
		trasher: trasher,
	}
}

// FindOptions are the caller-supplied query knobs for a collection read.
type FindOptions struct {
	// IDs narrows the result to the named documents.
	IDs             []string
	Where           bson.M
	Sort            []storage.SortField
	Limit           int64
	CaseInsensitive bool
}

// BatchResult summarizes a batch put. Items skipped over a foreign _account
// are reported by id, never as an error.
type BatchResult struct {
	UpsertedCount int64    `json:"upsertedCount"`
	ModifiedCount int64    `json:"modifiedCount"`
	SkippedIDs    []string `json:"skippedIds,omitempty"`
}

func (s *Store) global(collection string) bool {
	for _, c := range s.cfg.GlobalCollections {
		if c == collection {
			return true
		}
	}
	return false
}

// scope returns the account-scoping selector for caller at level. Superusers
// and global collections get an unscoped selector. An empty permitted set
// yields a selector matching nothing.
func (s *Store) scope(ctx context.Context, caller access.Caller, collection string, level access.Level) (bson.M, error) {
	if caller.Superuser || s.global(collection) {
		return bson.M{}, nil
	}
	accounts, err := s.gate.PermittedAccounts(ctx, caller, level)
	if err != nil {
		return nil, wrapStore("resolve permitted accounts", err)
	}
	return bson.M{"_account": bson.M{"$in": accounts}}, nil
}

// Find returns the documents of collection visible to caller at read level,
// honoring the supplied filter, sort, cap and collation options.
func (s *Store) Find(ctx context.Context, caller access.Caller, collection string, opts FindOptions) ([]bson.M, error) {
	selector, err := s.scope(ctx, caller, collection, access.LevelRead)
	if err != nil {
		return nil, err
	}
	for k, v := range opts.Where {
		if _, taken := selector[k]; !taken {
			selector[k] = v
		}
	}
	if len(opts.IDs) > 0 {
		selector["_id"] = bson.M{"$in": opts.IDs}
	}
	docs, err := s.backend.Find(ctx, collection, selector, storage.FindOptions{
		Sort:            opts.Sort,
		Limit:           opts.Limit,
		CaseInsensitive: opts.CaseInsensitive,
	})
	if err != nil {
		return nil, wrapStore("find", err)
	}
	return docs, nil
}

// FindOne returns the single document with the given id, or the empty-object
// sentinel when it does not exist (or is outside the caller's read scope).
func (s *Store) FindOne(ctx context.Context, caller access.Caller, collection, id string) (bson.M, error) {
	selector, err := s.scope(ctx, caller, collection, access.LevelRead)
	if err != nil {
		return nil, err
	}
	selector["_id"] = id
	doc, err := s.backend.FindOne(ctx, collection, selector)
	if err != nil {
		return nil, wrapStore("find one", err)
	}
	if doc == nil {
		return bson.M{}, nil
	}
	return doc, nil
}

// resolveAccount fills in or validates payload's _account against the
// caller's writable set. Reports false when the item must be rejected.
func resolveAccount(caller access.Caller, payload bson.M, writable []string) bool {
	acct, _ := payload["_account"].(string)
	if acct == "" {
		payload["_account"] = caller.Account
		return true
	}
	if caller.Superuser {
		return true
	}
	for _, a := range writable {
		if a == acct {
			return true
		}
	}
	return false
}

func resolveID(payload bson.M, explicit string) string {
	if id, ok := payload["_id"].(string); ok && id != "" {
		return id
	}
	if explicit != "" {
		return explicit
	}
	return storage.NewID()
}

// targetWritable reports whether the document currently stored under id (if
// any) belongs to one of the writable accounts. The upsert filter is by _id
// alone, so retargeting a foreign document must be refused here, before the
// write.
func (s *Store) targetWritable(ctx context.Context, collection, id string, writable []string) (bool, error) {
	existing, err := s.backend.FindOne(ctx, collection, bson.M{"_id": id})
	if err != nil {
		return false, wrapStore("check existing document", err)
	}
	if existing == nil {
		return true, nil
	}
	acct, _ := existing["_account"].(string)
	if acct == "" {
		return true, nil
	}
	for _, a := range writable {
		if a == acct {
			return true, nil
		}
	}
	return false, nil
}

// Put upserts a single document. A payload carrying an _account outside the
// caller's writable set is rejected with an authorization error, as is a
// write targeting an id whose stored document sits in a foreign account.
func (s *Store) Put(ctx context.Context, caller access.Caller, collection string, payload bson.M, explicitID string) (bson.M, error) {
	writable, err := s.writableAccounts(ctx, caller, collection)
	if err != nil {
		return nil, err
	}
	doc := cloneShallow(payload)
	if !s.global(collection) {
		if !resolveAccount(caller, doc, writable) {
			return nil, ErrAuthorization("account %q is not writable by caller %q", doc["_account"], caller.UserID)
		}
	}
	id := resolveID(doc, explicitID)
	if !caller.Superuser && !s.global(collection) {
		ok, err := s.targetWritable(ctx, collection, id, writable)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAuthorization("document %q is not writable by caller %q", id, caller.UserID)
		}
	}
	update := merge.BuildUpdate(caller.UserID, doc)
	if _, err := s.backend.BulkUpsert(ctx, collection, []storage.UpsertOp{{
		Filter: bson.M{"_id": id},
		Update: update,
	}}); err != nil {
		return nil, wrapStore("upsert", err)
	}
	// the bulk path does not hand back the post-write document
	out, err := s.backend.FindOne(ctx, collection, bson.M{"_id": id})
	if err != nil {
		return nil, wrapStore("fetch after upsert", err)
	}
	if out == nil {
		out = bson.M{}
	}
	return out, nil
}

// PutBatch upserts a sequence of documents as one bulk operation. Items
// failing the account check are silently skipped; the result's counts (and
// skipped-id list) carry the discrepancy. An empty batch is a usage error.
func (s *Store) PutBatch(ctx context.Context, caller access.Caller, collection string, payloads []bson.M) (BatchResult, error) {
	if len(payloads) == 0 {
		return BatchResult{}, ErrUsage("empty batch")
	}
	writable, err := s.writableAccounts(ctx, caller, collection)
	if err != nil {
		return BatchResult{}, err
	}
	var result BatchResult
	ops := make([]storage.UpsertOp, 0, len(payloads))
	for _, payload := range payloads {
		doc := cloneShallow(payload)
		id := resolveID(doc, "")
		if !s.global(collection) && !resolveAccount(caller, doc, writable) {
			result.SkippedIDs = append(result.SkippedIDs, id)
			continue
		}
		if !caller.Superuser && !s.global(collection) {
			ok, err := s.targetWritable(ctx, collection, id, writable)
			if err != nil {
				return BatchResult{}, err
			}
			if !ok {
				result.SkippedIDs = append(result.SkippedIDs, id)
				continue
			}
		}
		ops = append(ops, storage.UpsertOp{
			Filter: bson.M{"_id": id},
			Update: merge.BuildUpdate(caller.UserID, doc),
		})
	}
	if len(ops) == 0 {
		return result, nil
	}
	bulk, err := s.backend.BulkUpsert(ctx, collection, ops)
	if err != nil {
		return BatchResult{}, wrapStore("bulk upsert", err)
	}
	result.UpsertedCount = bulk.UpsertedCount
	result.ModifiedCount = bulk.ModifiedCount
	return result, nil
}

func (s *Store) writableAccounts(ctx context.Context, caller access.Caller, collection string) ([]string, error) {
	if caller.Superuser || s.global(collection) {
		return nil, nil
	}
	accounts, err := s.gate.PermittedAccounts(ctx, caller, access.LevelWrite)
	if err != nil {
		return nil, wrapStore("resolve permitted accounts", err)
	}
	return accounts, nil
}

// Remove deletes the named documents. With descriptors supplied, a non-empty
// reference report vetoes the whole delete. Recoverable removal goes through
// the trash vault at write level; a hard delete requires owner level.
func (s *Store) Remove(ctx context.Context, caller access.Caller, collection string, ids []string, recoverable bool, descriptors []refguard.Descriptor) error {
	if len(ids) == 0 {
		return ErrUsage("no document id supplied")
	}
	if len(descriptors) > 0 {
		usage, err := s.guard.UsedBy(ctx, ids, descriptors)
		if err != nil {
			return wrapStore("reference check", err)
		}
		if len(usage) > 0 {
			return ErrReferential(usage)
		}
	}
	if recoverable || s.cfg.SafeDelete {
		// trashing is a recoverable mutation: write level, not owner
		scope, err := s.scope(ctx, caller, collection, access.LevelWrite)
		if err != nil {
			return err
		}
		if err := s.trasher.Put(ctx, caller, collection, ids, scope); err != nil {
			return err
		}
		metrics.TrashOps.WithLabelValues("move").Inc()
		return nil
	}
	selector, err := s.scope(ctx, caller, collection, access.LevelOwner)
	if err != nil {
		return err
	}
	selector["_id"] = bson.M{"$in": ids}
	if err := s.backend.DeleteMany(ctx, collection, selector); err != nil {
		return wrapStore("delete", err)
	}
	return nil
}

// CheckConditions reports which collections still reference the given ids.
func (s *Store) CheckConditions(ctx context.Context, ids []string, descriptors []refguard.Descriptor) ([]refguard.Usage, error) {
	usage, err := s.guard.UsedBy(ctx, ids, descriptors)
	if err != nil {
		return nil, wrapStore("reference check", err)
	}
	return usage, nil
}

func cloneShallow(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
