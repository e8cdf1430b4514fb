// Package merge builds safe upsert specs from caller-supplied partial
// documents. Recognized mutation operators pass through verbatim, protected
// identity fields are stripped, and audit metadata is stamped so repeated
// application of the same update is idempotent on everything but _modified.
package merge

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// operators a caller may use directly in a payload to express targeted
// mutations alongside plain field replacement.
var operators = map[string]bool{
	"$set":      true,
	"$push":     true,
	"$pull":     true,
	"$addToSet": true,
	"$unset":    true,
}

// protected fields are fixed at first insert and never rewritten.
var protected = map[string]bool{
	"_id":        true,
	"_created":   true,
	"_createdBy": true,
}

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

// BuildUpdate turns partial into an update document ready for an upsert:
// plain fields land in $set, operator sub-documents pass through untouched,
// _modified is always refreshed, and _created/_createdBy are set-on-insert
// only. _id/_created/_createdBy supplied as plain fields are dropped.
func BuildUpdate(userID string, partial map[string]interface{}) bson.M {
	ts := now()
	set := bson.M{}
	update := bson.M{}
	var createdBy interface{}

	for field, value := range partial {
		switch {
		case field == "$set":
			// fold the caller's explicit $set into the plain bucket
			if sub, ok := toMap(value); ok {
				for k, v := range sub {
					if !protected[k] {
						set[k] = v
					}
				}
			}
		case operators[field]:
			update[field] = value
		case field == "_createdBy":
			createdBy = value
		case protected[field]:
			// dropped: identity fields cannot be rewritten
		default:
			set[field] = value
		}
	}

	set["_modified"] = ts
	update["$set"] = set

	insertOnly := bson.M{"_created": ts}
	if createdBy != nil {
		insertOnly["_createdBy"] = createdBy
	} else {
		insertOnly["_createdBy"] = userID
	}
	update["$setOnInsert"] = insertOnly
	return update
}

func toMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return m, true
	}
	return nil, false
}
