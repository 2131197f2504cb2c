package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exprgate/exprgate/internal/model"
	"github.com/exprgate/exprgate/internal/repository"
	"github.com/exprgate/exprgate/internal/secret"
)

type fakeStore struct {
	accounts map[string]*model.Account
	closed   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: map[string]*model.Account{}}
}

func (f *fakeStore) CreateAccount(_ context.Context, a *model.Account) error {
	if _, ok := f.accounts[a.APIKey]; ok {
		return repository.ErrAccountExists
	}
	f.accounts[a.APIKey] = a
	return nil
}

func (f *fakeStore) AddUses(_ context.Context, key string, n int) (int, error) {
	a, ok := f.accounts[key]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	a.UsesLeft += n
	return a.UsesLeft, nil
}

func (f *fakeStore) GetAccount(_ context.Context, key string) (*model.Account, error) {
	a, ok := f.accounts[key]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return a, nil
}

func run(t *testing.T, store *fakeStore, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	open := func(_ context.Context, databaseURL string) (accountStore, func(), error) {
		if databaseURL == "" {
			return nil, nil, errors.New("no database")
		}
		return store, func() { store.closed = true }, nil
	}
	app := newApp(strings.NewReader(stdin), &out, open)
	err := app.Run(context.Background(), append([]string{"provision"}, args...))
	return out.String(), err
}

func TestCreate_PrintsNewKey(t *testing.T) {
	store := newFakeStore()

	out, err := run(t, store, "", "create",
		"--database-url", "postgres://localhost/exprgate",
		"--first-name", "Ada", "--last-name", "Lovelace", "--email", "ada@example.org")
	require.NoError(t, err)

	key := strings.TrimSpace(out)
	require.Len(t, key, 40)
	account, ok := store.accounts[key]
	require.True(t, ok)
	assert.Equal(t, defaultUses, account.UsesLeft)
	assert.Equal(t, "Ada", account.FirstName)
	assert.Equal(t, "ada@example.org", account.Email)
	assert.True(t, store.closed)
}

func TestCreate_JSONOutput(t *testing.T) {
	store := newFakeStore()

	out, err := run(t, store, "", "create",
		"--database-url", "postgres://localhost/exprgate",
		"--email", "ada@example.org", "--uses", "5", "--format", "json")
	require.NoError(t, err)

	var got accountOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 5, got.UsesLeft)
	assert.Contains(t, store.accounts, got.Key)
}

func TestCreate_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := run(t, newFakeStore(), "", "create", "--email", "ada@example.org")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestTopup_AddsUses(t *testing.T) {
	store := newFakeStore()
	store.accounts["abcd1234"] = &model.Account{APIKey: "abcd1234", UsesLeft: 2}

	out, err := run(t, store, "", "topup",
		"--database-url", "postgres://localhost/exprgate", "--key", "abcd1234", "--uses", "10")
	require.NoError(t, err)
	assert.Equal(t, "12\n", out)
}

func TestTopup_UnknownKeyIsMasked(t *testing.T) {
	_, err := run(t, newFakeStore(), "", "topup",
		"--database-url", "postgres://localhost/exprgate", "--key", "secretkey99", "--uses", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
	assert.NotContains(t, err.Error(), "secretkey99")
}

func TestShow_OmitsKey(t *testing.T) {
	store := newFakeStore()
	store.accounts["abcd1234"] = &model.Account{APIKey: "abcd1234", UsesLeft: 3, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.org"}

	out, err := run(t, store, "", "show",
		"--database-url", "postgres://localhost/exprgate", "--key", "abcd1234", "--format", "json")
	require.NoError(t, err)
	assert.NotContains(t, out, "abcd1234")
	assert.Contains(t, out, `"uses_left": 3`)
}

func TestSealSecret_RoundTrips(t *testing.T) {
	key, err := secret.GenerateKey()
	require.NoError(t, err)

	out, err := run(t, newFakeStore(), "drive-token\n", "seal-secret", "--sealing-key", key)
	require.NoError(t, err)

	cred, err := secret.Open(key, out)
	require.NoError(t, err)
	assert.Equal(t, "drive-token", cred.Value())
}

func TestSealSecret_GeneratesKey(t *testing.T) {
	t.Setenv("DRIVE_LIST_KEY", "")

	out, err := run(t, newFakeStore(), "drive-token", "seal-secret")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	key := strings.TrimPrefix(lines[0], "DRIVE_LIST_KEY=")
	cred, err := secret.Open(key, lines[1])
	require.NoError(t, err)
	assert.Equal(t, "drive-token", cred.Value())
}

func TestSealSecret_RejectsEmptyInput(t *testing.T) {
	_, err := run(t, newFakeStore(), "  \n", "seal-secret", "--sealing-key", "irrelevant")
	require.Error(t, err)
}
