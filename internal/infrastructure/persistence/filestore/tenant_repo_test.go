package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/internal/infrastructure/persistence/filestore"
	"github.com/credicefi/crediface/internal/infrastructure/persistence/seed"
	"github.com/credicefi/crediface/pkg/constants"
	"github.com/credicefi/crediface/pkg/errors"
	"github.com/credicefi/crediface/pkg/logger"
)

const misconfigured = `{
  "institution_info": {"id": "broken_001", "name": "Broken"},
  "risk_configuration": {"auto_reject_threshold": 0.5, "high_risk_threshold": 0.8,
    "medium_risk_threshold": 0.65, "low_risk_threshold": 0.35}
}`

func newSeededRepo(t *testing.T) *filestore.TenantRepo {
	t.Helper()
	root := t.TempDir()
	repo := filestore.NewTenantRepo(filepath.Join(root, "config", "institutions"), filepath.Join(root, "data"), logger.NewNoopLogger())
	_, err := seed.NewSeeder(repo, logger.NewNoopLogger()).SeedAll(context.Background())
	require.NoError(t, err)
	return repo
}

func TestTenantRepo_SeededTenant(t *testing.T) {
	repo := newSeededRepo(t)
	ctx := context.Background()

	cfg, err := repo.GetConfig(ctx, seed.DemoTenantID)
	require.NoError(t, err)
	assert.Equal(t, "Banco Demo Colombia", cfg.InstitutionInfo.Name)
	assert.Equal(t, models.DefaultRiskThresholds(), cfg.RiskConfiguration)
	assert.NotEmpty(t, cfg.InstitutionInfo.Created)

	defaults, err := repo.GetHistoricalDefaults(ctx, seed.DemoTenantID)
	require.NoError(t, err)
	require.Len(t, defaults, 3, "only rows with moroso=1 are defaults")
	for _, rec := range defaults {
		assert.Equal(t, "1", rec.Fields["moroso"])
	}

	columns, rows, err := repo.InspectDataset(ctx, seed.DemoTenantID)
	require.NoError(t, err)
	assert.Equal(t, []string{"edad", "ingresos", "ciudad", "score_crediticio", "moroso"}, columns)
	assert.Len(t, rows, 10)
	assert.Equal(t, "Bogotá", rows[0].Fields["ciudad"])
	assert.Equal(t, 1, rows[0].Row)
}

func TestTenantRepo_UnknownTenant(t *testing.T) {
	repo := newSeededRepo(t)

	for _, id := range []string{"ghost", "../config", "Banco_Demo"} {
		_, err := repo.GetConfig(context.Background(), id)
		assert.True(t, errors.IsNotFoundError(err), id)
	}
}

func TestTenantRepo_MissingDataset(t *testing.T) {
	repo := newSeededRepo(t)
	cfg, err := seed.DemoConfig()
	require.NoError(t, err)
	require.NoError(t, repo.SaveConfig(context.Background(), "coop_sur", cfg))

	_, err = repo.GetHistoricalDefaults(context.Background(), "coop_sur")
	assert.True(t, errors.IsDataUnavailable(err))
}

func TestTenantRepo_MisconfiguredTenant(t *testing.T) {
	repo := newSeededRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(repo.ConfigDir(), "broken.json"), []byte(misconfigured), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(repo.ConfigDir(), "notes.txt"), []byte("ignored"), 0o644))

	_, err := repo.GetConfig(context.Background(), "broken")
	assert.True(t, errors.IsDataUnavailable(err))

	tenants, err := repo.ListTenants(context.Background())
	require.NoError(t, err)
	require.Len(t, tenants, 2)

	byID := map[string]models.TenantSummary{}
	for _, s := range tenants {
		byID[s.ID] = s
	}
	assert.Equal(t, constants.TenantStatusMisconfigured, byID["broken"].Status)
	assert.Equal(t, constants.TenantStatusActive, byID["banco_demo"].Status)
	assert.Equal(t, "CO", byID["banco_demo"].Country)
}

func TestTenantRepo_SaveConfigRejectsInvalid(t *testing.T) {
	repo := newSeededRepo(t)
	cfg := &models.TenantConfig{RiskConfiguration: models.RiskThresholds{AutoReject: 0.3, High: 0.8, Medium: 0.65, Low: 0.35}}

	err := repo.SaveConfig(context.Background(), "bad", cfg)
	assert.True(t, errors.HasCode(err, constants.ErrCodeInvalidRequest))
}

func TestTenantRepo_SnapshotUntilInvalidated(t *testing.T) {
	repo := newSeededRepo(t)
	ctx := context.Background()

	_, err := repo.GetConfig(ctx, seed.DemoTenantID)
	require.NoError(t, err)

	path := filepath.Join(repo.ConfigDir(), seed.DemoTenantID+".json")
	require.NoError(t, os.WriteFile(path, []byte(misconfigured), 0o644))

	_, err = repo.GetConfig(ctx, seed.DemoTenantID)
	assert.NoError(t, err, "served from the snapshot")

	repo.Invalidate(seed.DemoTenantID)
	_, err = repo.GetConfig(ctx, seed.DemoTenantID)
	assert.True(t, errors.IsDataUnavailable(err))
}

func TestTenantRepo_CanceledContext(t *testing.T) {
	repo := newSeededRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetConfig(ctx, seed.DemoTenantID)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = repo.GetHistoricalDefaults(ctx, seed.DemoTenantID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTenantRepo_ReplaceHistoricalDefaults(t *testing.T) {
	repo := newSeededRepo(t)
	ctx := context.Background()

	records := []models.HistoricalDefaultRecord{
		{Fields: map[string]string{"age": "40", "monthly_income": "3000000", "defaulted": "true"}},
		{Fields: map[string]string{"age": "31", "monthly_income": "2000000", "defaulted": "false"}},
	}
	require.NoError(t, repo.ReplaceHistoricalDefaults(ctx, seed.DemoTenantID, records))

	columns, rows, err := repo.InspectDataset(ctx, seed.DemoTenantID)
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "defaulted", "monthly_income"}, columns)
	assert.Len(t, rows, 2)

	defaults, err := repo.GetHistoricalDefaults(ctx, seed.DemoTenantID)
	require.NoError(t, err)
	require.Len(t, defaults, 1)
	assert.Equal(t, "40", defaults[0].Fields["age"])
}

func TestWatcher_InvalidatesOnChange(t *testing.T) {
	repo := newSeededRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := filestore.NewWatcher(repo, logger.NewNoopLogger())
	require.NoError(t, err)
	defer w.Close()

	changed := make(chan string, 16)
	w.OnChange(func(tenantID string) { changed <- tenantID })
	require.NoError(t, w.Start(ctx))

	_, err = repo.GetConfig(ctx, seed.DemoTenantID)
	require.NoError(t, err)

	cfg, err := seed.DemoConfig()
	require.NoError(t, err)
	cfg.InstitutionInfo.Name = "Banco Demo Renamed"
	require.NoError(t, repo.SaveConfig(ctx, seed.DemoTenantID, cfg))

	select {
	case id := <-changed:
		assert.Equal(t, seed.DemoTenantID, id)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	assert.Eventually(t, func() bool {
		got, err := repo.GetConfig(ctx, seed.DemoTenantID)
		return err == nil && got.InstitutionInfo.Name == "Banco Demo Renamed"
	}, 5*time.Second, 20*time.Millisecond)
}
