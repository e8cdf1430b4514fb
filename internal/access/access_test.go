package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPermittedAccountsFromOracle(t *testing.T) {
	oracle := &StaticOracle{Grants: map[string]map[Level][]string{
		"u1": {
			LevelRead:  {"a1", "a2"},
			LevelWrite: {"a1"},
		},
	}}
	gate := NewGate(oracle)
	ctx := context.Background()

	got, err := gate.PermittedAccounts(ctx, Caller{UserID: "u1", Account: "a1"}, LevelRead)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a1", "a2"}, got)

	got, err = gate.PermittedAccounts(ctx, Caller{UserID: "u1", Account: "a1"}, LevelWrite)
	require.NoError(t, err)
	require.Equal(t, []string{"a1"}, got)

	// write grants do not leak into owner level
	got, err = gate.PermittedAccounts(ctx, Caller{UserID: "u1", Account: "a1"}, LevelOwner)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestPermittedAccountsNoGrantsIsEmptyNotError(t *testing.T) {
	gate := NewGate(&StaticOracle{})
	got, err := gate.PermittedAccounts(context.Background(), Caller{UserID: "stranger"}, LevelRead)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestPermittedAccountsSuperuserSelfAccess(t *testing.T) {
	gate := NewGate(&StaticOracle{})
	su := Caller{UserID: "root", Account: "home", Superuser: true}

	got, err := gate.PermittedAccounts(context.Background(), su, LevelOwner)
	require.NoError(t, err)
	require.Equal(t, []string{"home"}, got)
}

func TestPermittedAccountsSuperuserNoDuplicateSelf(t *testing.T) {
	oracle := &StaticOracle{Grants: map[string]map[Level][]string{
		"root": {LevelWrite: {"home", "other"}},
	}}
	gate := NewGate(oracle)
	got, err := gate.PermittedAccounts(context.Background(), Caller{UserID: "root", Account: "home", Superuser: true}, LevelWrite)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"home", "other"}, got)
}
