package access

import "context"

// Level is an access level in the read < write < owner lattice. The oracle
// is queried per level; a higher grant does not implicitly satisfy a lower
// one unless the oracle's policy says so.
type Level string

const (
	LevelRead  Level = "read"
	LevelWrite Level = "write"
	LevelOwner Level = "owner"
)

// Caller identifies who is invoking an operation. It is threaded explicitly
// through every call; there is no ambient request state.
type Caller struct {
	UserID    string
	Account   string
	Superuser bool
}

// Oracle is the external authorization service: which accounts does a user
// hold a grant on, at the given level.
type Oracle interface {
	GrantedAccounts(ctx context.Context, userID string, level Level) ([]string, error)
}

// Gate resolves the account set a caller may act upon at a given level.
type Gate struct {
	oracle Oracle
}

func NewGate(oracle Oracle) *Gate {
	return &Gate{oracle: oracle}
}

// PermittedAccounts queries the oracle for the caller's grants at level.
// A superuser is always granted at least their own account, even with no
// explicit grants. No grants is not an error: the empty set means "nothing
// permitted", never "everything permitted".
func (g *Gate) PermittedAccounts(ctx context.Context, caller Caller, level Level) ([]string, error) {
	accounts, err := g.oracle.GrantedAccounts(ctx, caller.UserID, level)
	if err != nil {
		return nil, err
	}
	if caller.Superuser && caller.Account != "" {
		found := false
		for _, a := range accounts {
			if a == caller.Account {
				found = true
				break
			}
		}
		if !found {
			accounts = append(accounts, caller.Account)
		}
	}
	if accounts == nil {
		accounts = []string{}
	}
	return accounts, nil
}

// StaticOracle is an in-memory Oracle keyed by user id, used in tests and
// single-tenant deployments without an external grants store.
type StaticOracle struct {
	Grants map[string]map[Level][]string
}

func (o *StaticOracle) GrantedAccounts(ctx context.Context, userID string, level Level) ([]string, error) {
	byLevel, ok := o.Grants[userID]
	if !ok {
		return nil, nil
	}
	return byLevel[level], nil
}
