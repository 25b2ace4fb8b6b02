package credentials

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/rewardflow/internal/database"
	"github.com/BaSui01/rewardflow/types"
)

func TestParseDelimited(t *testing.T) {
	creds, err := ParseDelimited(" a@example.com , b@example.com", "pw1, pw2 ", ",")
	require.NoError(t, err)
	assert.Equal(t, []types.Credential{
		{Identifier: "a@example.com", Secret: "pw1"},
		{Identifier: "b@example.com", Secret: "pw2"},
	}, creds)

	creds, err = ParseDelimited("a@example.com;b@example.com", "x;y", ";")
	require.NoError(t, err)
	assert.Len(t, creds, 2)
}

func TestParseDelimited_Invalid(t *testing.T) {
	for _, tc := range []struct {
		name, emails, passwords string
	}{
		{"length mismatch", "a@x,b@x", "pw"},
		{"empty emails", "", "pw"},
		{"empty passwords", "a@x", "  "},
		{"blank entry", "a@x,,c@x", "1,2,3"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDelimited(tc.emails, tc.passwords, ",")
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestParseDelimited_PairsUp(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[a-z0-9]{1,8}`)
		n := rapid.IntRange(1, 10).Draw(t, "n")
		ids := make([]string, n)
		pws := make([]string, n)
		for i := range ids {
			ids[i] = word.Draw(t, "id") + "@example.com"
			pws[i] = word.Draw(t, "pw")
		}

		creds, err := ParseDelimited(strings.Join(ids, ","), strings.Join(pws, ","), ",")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(creds) != n {
			t.Fatalf("got %d credentials, want %d", len(creds), n)
		}
		for i, c := range creds {
			if c.Identifier != ids[i] || c.Secret != pws[i] {
				t.Fatalf("entry %d mismatched: %+v", i, c)
			}
		}
	})
}

func TestMerge_DedupesByEmail(t *testing.T) {
	a := SourceFunc(func(context.Context) ([]types.Credential, error) {
		return []types.Credential{{Identifier: "A@example.com", Secret: "1"}}, nil
	})
	b := SourceFunc(func(context.Context) ([]types.Credential, error) {
		return []types.Credential{{Identifier: "a@example.com", Secret: "2"}, {Identifier: "b@example.com", Secret: "3"}}, nil
	})

	creds, err := Merge(a, b).LoadCredentials(context.Background())
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "1", creds[0].Secret)
	assert.Equal(t, "b@example.com", creds[1].Identifier)
}

func TestIgnoreMissing(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	creds, err := IgnoreMissing(NewJSONFile(filepath.Join(dir, "missing.json"))).LoadCredentials(ctx)
	require.NoError(t, err)
	assert.Empty(t, creds)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{not json`), 0o600))
	_, err = IgnoreMissing(NewJSONFile(bad)).LoadCredentials(ctx)
	assert.Error(t, err, "only a missing file is tolerated")
}

// =============================================================================
// 🧪 JSONFile
// =============================================================================

func TestJSONFile_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"email": "a@example.com", "password": "cipher", "salt": "s1"},
		{"email": "b@example.com", "password": "cipher2", "salt": "s2"}
	]`), 0o600))

	creds, err := NewJSONFile(path).LoadCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.Credential{
		{Identifier: "a@example.com", Secret: "cipher", Salt: "s1"},
		{Identifier: "b@example.com", Secret: "cipher2", Salt: "s2"},
	}, creds)
}

func TestJSONFile_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := NewJSONFile(filepath.Join(dir, "missing.json")).LoadCredentials(ctx)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{not json`), 0o600))
	_, err = NewJSONFile(bad).LoadCredentials(ctx)
	assert.Error(t, err)

	noPassword := filepath.Join(dir, "nopw.json")
	require.NoError(t, os.WriteFile(noPassword, []byte(`[{"email": "a@example.com"}]`), 0o600))
	_, err = NewJSONFile(noPassword).LoadCredentials(ctx)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestJSONFile_SaveAllAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "accounts.json")
	f := NewJSONFile(path)
	ctx := context.Background()

	_, err := f.SaveAll(ctx, []types.Credential{{Identifier: "a@example.com", Secret: "1", Salt: "x"}})
	require.NoError(t, err)
	all, err := f.SaveAll(ctx, []types.Credential{{Identifier: "b@example.com", Secret: "2"}})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	loaded, err := f.LoadCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, all, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = f.SaveAll(ctx, []types.Credential{{Identifier: "c@example.com"}})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// =============================================================================
// 🧪 Store
// =============================================================================

func newStore(t *testing.T) *Store {
	t.Helper()
	pool, err := database.Open(database.Config{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "credentials.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	store, err := NewStore(context.Background(), pool, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "", []types.Credential{
		{Identifier: "shared@example.com", Secret: "s", Salt: "salt"},
	}))
	require.NoError(t, store.Save(ctx, types.ProfileSecondary, []types.Credential{
		{Identifier: "mobile@example.com", Secret: "m"},
	}))

	all, err := store.LoadCredentials(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "salt", all[0].Salt)

	primary, err := store.Load(ctx, types.ProfilePrimary)
	require.NoError(t, err)
	assert.Equal(t, []types.Credential{{Identifier: "shared@example.com", Secret: "s", Salt: "salt"}}, primary)

	secondary, err := store.ForProfile(types.ProfileSecondary).LoadCredentials(ctx)
	require.NoError(t, err)
	assert.Len(t, secondary, 2)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	err := store.Save(ctx, "", []types.Credential{{Identifier: "a@example.com", Secret: "1"}, {Identifier: "", Secret: "2"}})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewStore_RequiresPool(t *testing.T) {
	_, err := NewStore(context.Background(), nil, nil)
	assert.Error(t, err)
}
