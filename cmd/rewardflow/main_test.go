package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/rewardflow/config"
	"github.com/BaSui01/rewardflow/credentials"
	"github.com/BaSui01/rewardflow/internal/database"
	"github.com/BaSui01/rewardflow/task"
	"github.com/BaSui01/rewardflow/testutil"
	"github.com/BaSui01/rewardflow/testutil/mocks"
	"github.com/BaSui01/rewardflow/types"
)

func TestInitLogger(t *testing.T) {
	for _, cfg := range []config.LogConfig{
		{Level: "debug", Format: "console"},
		{Level: "warn", Format: "json", OutputPaths: []string{"stderr"}},
		{Level: "bogus", Format: "json", EnableCaller: true, EnableStacktrace: true},
		{OutputPaths: []string{filepath.Join(t.TempDir(), "missing", "dir", "log")}},
	} {
		logger := initLogger(cfg)
		require.NotNil(t, logger)
		logger.Info("hello")
	}

	assert.True(t, initLogger(config.LogConfig{Level: "debug"}).Core().Enabled(zap.DebugLevel))
	assert.False(t, initLogger(config.LogConfig{Level: "error"}).Core().Enabled(zap.WarnLevel))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"primary", "secondary"}, splitList(" primary, ,secondary "))
	assert.Empty(t, splitList(""))
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "dev", version())

	old := Version
	Version = "v1.2.3"
	t.Cleanup(func() { Version = old })
	assert.Equal(t, "v1.2.3", version())
}

func TestExitCode(t *testing.T) {
	assert.Zero(t, exitCode(nil))
	assert.Zero(t, exitCode([]task.Result{
		{Outcome: task.OutcomeConverged},
		{Outcome: task.OutcomeRetryExhausted},
		{Outcome: task.OutcomeSignInFailed},
	}))
	assert.Equal(t, 130, exitCode([]task.Result{{Outcome: task.OutcomeConverged}, {Outcome: task.OutcomeCancelled}}))
	assert.Equal(t, 1, exitCode([]task.Result{{Outcome: task.OutcomeCancelled}, {Outcome: task.OutcomeFatal}}))
}

func TestBuildWords(t *testing.T) {
	cfg := config.DefaultConfig()
	gen, err := buildWords(cfg, nil, zap.NewNop(), nil)
	require.NoError(t, err)
	require.NotNil(t, gen)

	cfg.Words.MinLength, cfg.Words.MaxLength = 5, 2
	_, err = buildWords(cfg, nil, zap.NewNop(), nil)
	assert.Error(t, err)

	cfg = config.DefaultConfig()
	cfg.Browser.ProxyURL = "ftp://proxy.example.test:21"
	_, err = buildWords(cfg, nil, zap.NewNop(), nil)
	assert.Error(t, err, "unsupported proxy scheme")
}

func TestCredentialSource(t *testing.T) {
	dir := t.TempDir()
	ctx := testutil.TestContext(t)
	file := testutil.WriteCredentialsFile(t, []types.Credential{{Identifier: "a@example.com", Secret: "pw"}})

	accounts := config.AccountsConfig{Files: []string{file}}
	creds, err := credentialSource(accounts, nil, types.ProfilePrimary).LoadCredentials(ctx)
	require.NoError(t, err)
	assert.Len(t, creds, 1)

	missing := config.AccountsConfig{Files: []string{filepath.Join(dir, "missing.json")}}
	_, err = credentialSource(missing, nil, types.ProfilePrimary).LoadCredentials(ctx)
	assert.Error(t, err, "a missing file is fatal without a database")

	pool, err := database.Open(database.Config{Driver: database.DriverSQLite, DSN: filepath.Join(dir, "creds.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	store, err := credentials.NewStore(ctx, pool, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, types.ProfileSecondary, []types.Credential{
		{Identifier: "A@example.com", Secret: "dup"},
		{Identifier: "m@example.com", Secret: "pw"},
	}))

	both := config.AccountsConfig{Files: []string{file, filepath.Join(dir, "missing.json")}}
	creds, err = credentialSource(both, store, types.ProfileSecondary).LoadCredentials(ctx)
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "pw", creds[0].Secret, "file entries win over database duplicates")
	assert.Equal(t, "m@example.com", creds[1].Identifier)

	creds, err = credentialSource(both, store, types.ProfilePrimary).LoadCredentials(ctx)
	require.NoError(t, err)
	assert.Len(t, creds, 1, "records bound to another profile are skipped")
}

func TestStatusSnapshot(t *testing.T) {
	site := mocks.NewRewardsSite(mocks.MobileProfile(), 0, 0)
	m := task.NewManager(task.ManagerConfig{Task: task.DefaultOptions()}, task.Deps{
		Factory: mocks.NewFakeFactory(func(types.SiteProfile) *mocks.FakeDriver { return site.NewDriver() }),
		Words:   blankWords{},
		Logger:  zap.NewNop(),
	})
	_, err := m.Submit([]types.Credential{{Identifier: "someone@example.com", Secret: "pw"}}, mocks.MobileProfile())
	require.NoError(t, err)

	before := statusSnapshot(m)
	assert.Equal(t, 0.0, before.CompletedFraction)
	require.Len(t, before.Tasks, 1)
	assert.Equal(t, "created", before.Tasks[0].State)
	assert.Equal(t, "pending", before.Tasks[0].Outcome)
	assert.NotContains(t, before.Tasks[0].Account, "someone")
	assert.False(t, before.Tasks[0].Done)
}

func TestPrintAccounts(t *testing.T) {
	creds := testutil.Credentials(3)
	var buf bytes.Buffer
	printAccounts(&buf, types.ProfilePrimary, creds)
	assert.Contains(t, buf.String(), "primary (3):")
	testutil.AssertMasked(t, buf.String(), creds...)
}

type blankWords struct{}

func (blankWords) Generate(ctx context.Context, n int) ([]string, error) {
	return make([]string, n), nil
}
