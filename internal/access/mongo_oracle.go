package access

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoOracle reads grants from a collection of {user, account, level}
// documents, one per (user, account, level) fact.
type MongoOracle struct {
	col *mongo.Collection
}

func NewMongoOracle(col *mongo.Collection) *MongoOracle {
	return &MongoOracle{col: col}
}

type grant struct {
	User    string `bson:"user"`
	Account string `bson:"account"`
	Level   string `bson:"level"`
}

func (o *MongoOracle) GrantedAccounts(ctx context.Context, userID string, level Level) ([]string, error) {
	cur, err := o.col.Find(ctx, bson.M{"user": userID, "level": string(level)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var accounts []string
	seen := map[string]bool{}
	for cur.Next(ctx) {
		var g grant
		if err := cur.Decode(&g); err != nil {
			return nil, err
		}
		if g.Account != "" && !seen[g.Account] {
			seen[g.Account] = true
			accounts = append(accounts, g.Account)
		}
	}
	return accounts, cur.Err()
}
