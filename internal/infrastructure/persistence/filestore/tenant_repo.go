// Package filestore implements the tenant repository on top of the directory
// layout used by institution deployments:
//
//	<config_dir>/<tenant>.json
//	<data_dir>/<tenant>/historical_defaults.csv
package filestore

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/internal/domain/repository"
	"github.com/credicefi/crediface/internal/domain/service"
	"github.com/credicefi/crediface/pkg/constants"
	"github.com/credicefi/crediface/pkg/errors"
	"github.com/credicefi/crediface/pkg/logger"
	"github.com/credicefi/crediface/pkg/utils"
)

// DatasetFileName is the name of the historical dataset inside a tenant data directory.
const DatasetFileName = "historical_defaults.csv"

const sourceName = "file"

type dataset struct {
	columns []string
	rows    []models.HistoricalDefaultRecord
}

// TenantRepo reads tenant configurations and datasets from disk. Parsed files are
// kept in a snapshot until Invalidate is called, usually by the Watcher.
type TenantRepo struct {
	configDir string
	dataDir   string
	logger    logger.Logger

	mu       sync.RWMutex
	configs  map[string]*models.TenantConfig
	datasets map[string]*dataset

	readFile func(name string) ([]byte, error)
}

var (
	_ repository.TenantRepository = (*TenantRepo)(nil)
	_ repository.TenantWriter     = (*TenantRepo)(nil)
	_ repository.DatasetInspector = (*TenantRepo)(nil)
)

// NewTenantRepo creates a file-backed tenant repository.
func NewTenantRepo(configDir, dataDir string, log logger.Logger) *TenantRepo {
	return &TenantRepo{
		configDir: configDir,
		dataDir:   dataDir,
		logger:    log.WithComponent("filestore"),
		configs:   make(map[string]*models.TenantConfig),
		datasets:  make(map[string]*dataset),
		readFile:  os.ReadFile,
	}
}

// ConfigDir returns the directory holding tenant configurations.
func (r *TenantRepo) ConfigDir() string { return r.configDir }

// DataDir returns the directory holding tenant datasets.
func (r *TenantRepo) DataDir() string { return r.dataDir }

func (r *TenantRepo) configPath(tenantID string) string {
	return filepath.Join(r.configDir, tenantID+".json")
}

func (r *TenantRepo) datasetPath(tenantID string) string {
	return filepath.Join(r.dataDir, tenantID, DatasetFileName)
}

// GetConfig returns the validated configuration of a tenant.
func (r *TenantRepo) GetConfig(ctx context.Context, tenantID string) (*models.TenantConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// ids become file names, anything unusual is simply unknown
	if utils.ValidateTenantID(tenantID) != nil {
		return nil, errors.ErrConfigurationNotFound(tenantID)
	}

	r.mu.RLock()
	cfg, ok := r.configs[tenantID]
	r.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	cfg, err := awaitRead(ctx, func() (*models.TenantConfig, error) { return r.loadConfig(tenantID) })
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.configs[tenantID] = cfg
	r.mu.Unlock()
	return cfg, nil
}

func (r *TenantRepo) loadConfig(tenantID string) (*models.TenantConfig, error) {
	raw, err := r.readFile(r.configPath(tenantID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrConfigurationNotFound(tenantID)
		}
		return nil, errors.ErrDataUnavailable(tenantID, "configuration unreadable").WithCause(err)
	}

	var cfg models.TenantConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		r.logger.Warn(context.Background(), "Malformed tenant configuration",
			logger.String("tenant_id", tenantID), logger.Err(err))
		return nil, errors.ErrDataUnavailable(tenantID, "configuration is malformed").WithCause(err)
	}
	if err := cfg.Validate(); err != nil {
		r.logger.Warn(context.Background(), "Tenant configuration failed validation",
			logger.String("tenant_id", tenantID), logger.Err(err))
		return nil, errors.ErrDataUnavailable(tenantID, "tenant is misconfigured: "+err.Error()).WithCause(err)
	}
	return &cfg, nil
}

// GetHistoricalDefaults returns the rows of the tenant dataset that are confirmed defaults.
func (r *TenantRepo) GetHistoricalDefaults(ctx context.Context, tenantID string) ([]models.HistoricalDefaultRecord, error) {
	ds, err := r.dataset(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := make([]models.HistoricalDefaultRecord, 0, len(ds.rows))
	for _, rec := range ds.rows {
		if service.IsConfirmedDefault(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// InspectDataset returns the header and every row of the tenant dataset.
func (r *TenantRepo) InspectDataset(ctx context.Context, tenantID string) ([]string, []models.HistoricalDefaultRecord, error) {
	ds, err := r.dataset(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	columns := append([]string(nil), ds.columns...)
	rows := append([]models.HistoricalDefaultRecord(nil), ds.rows...)
	return columns, rows, nil
}

func (r *TenantRepo) dataset(ctx context.Context, tenantID string) (*dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if utils.ValidateTenantID(tenantID) != nil {
		return nil, errors.ErrDataUnavailable(tenantID, "historical dataset not found")
	}

	r.mu.RLock()
	ds, ok := r.datasets[tenantID]
	r.mu.RUnlock()
	if ok {
		return ds, nil
	}

	ds, err := awaitRead(ctx, func() (*dataset, error) { return r.loadDataset(tenantID) })
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.datasets[tenantID] = ds
	r.mu.Unlock()

	r.logger.Debug(ctx, "Loaded historical dataset",
		logger.String("tenant_id", tenantID),
		logger.Int("rows", len(ds.rows)),
	)
	return ds, nil
}

func (r *TenantRepo) loadDataset(tenantID string) (*dataset, error) {
	path := r.datasetPath(tenantID)
	raw, err := r.readFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrDataUnavailable(tenantID, "historical dataset not found")
		}
		return nil, errors.ErrDataUnavailable(tenantID, "historical dataset unreadable").WithCause(err)
	}
	ds, err := readDataset(bytes.NewReader(raw), path)
	if err != nil {
		return nil, errors.ErrDataUnavailable(tenantID, "historical dataset unreadable").WithCause(err)
	}
	return ds, nil
}

// awaitRead runs read on its own goroutine and returns as soon as ctx ends. The
// result of an abandoned read is dropped.
func awaitRead[T any](ctx context.Context, read func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := read()
		done <- result{v, err}
	}()

	select {
	case res := <-done:
		return res.v, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// readDataset parses a CSV with a header row. Short rows leave trailing fields
// empty; the field mapping decides what an empty value means.
func readDataset(rd io.Reader, source string) (*dataset, error) {
	reader := csv.NewReader(rd)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return &dataset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	ds := &dataset{columns: header}
	for row := 1; ; row++ {
		values, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(values) {
				fields[col] = values[i]
			}
		}
		ds.rows = append(ds.rows, models.HistoricalDefaultRecord{Fields: fields, Source: source, Row: row})
	}
	return ds, nil
}

// ListTenants lists every *.json file in the configuration directory.
func (r *TenantRepo) ListTenants(ctx context.Context) ([]models.TenantSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.TenantSummary{}, nil
		}
		return nil, errors.ErrServerError("failed to list institutions").WithCause(err)
	}

	out := make([]models.TenantSummary, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		if utils.ValidateTenantID(id) != nil {
			continue
		}

		summary := models.TenantSummary{ID: id, Name: id, Status: constants.TenantStatusMisconfigured, Source: sourceName}
		if cfg, err := r.GetConfig(ctx, id); err == nil {
			summary.Name = cfg.Label()
			summary.Country = cfg.InstitutionInfo.Country
			summary.Status = cfg.InstitutionInfo.Status
			if summary.Status == "" {
				summary.Status = constants.TenantStatusActive
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

// SaveConfig validates cfg and writes it as indented JSON.
func (r *TenantRepo) SaveConfig(ctx context.Context, tenantID string, cfg *models.TenantConfig) error {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.ErrInvalidRequest(err.Error())
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.ErrServerError("failed to encode configuration").WithCause(err)
	}
	if err := writeFileAtomic(r.configPath(tenantID), raw); err != nil {
		return errors.ErrServerError("failed to write configuration").WithCause(err)
	}

	r.Invalidate(tenantID)
	r.logger.Info(ctx, "Tenant configuration saved", logger.String("tenant_id", tenantID))
	return nil
}

// ReplaceHistoricalDefaults rewrites the tenant dataset. Columns are the union
// of all record keys in sorted order.
func (r *TenantRepo) ReplaceHistoricalDefaults(ctx context.Context, tenantID string, records []models.HistoricalDefaultRecord) error {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return err
	}
	return r.WriteDataset(ctx, tenantID, columnsOf(records), records)
}

// WriteDataset rewrites the tenant dataset with an explicit column order.
func (r *TenantRepo) WriteDataset(ctx context.Context, tenantID string, columns []string, records []models.HistoricalDefaultRecord) error {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(columns); err != nil {
		return errors.ErrServerError("failed to encode dataset").WithCause(err)
	}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = rec.Fields[col]
		}
		if err := w.Write(row); err != nil {
			return errors.ErrServerError("failed to encode dataset").WithCause(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.ErrServerError("failed to encode dataset").WithCause(err)
	}

	if err := writeFileAtomic(r.datasetPath(tenantID), []byte(sb.String())); err != nil {
		return errors.ErrServerError("failed to write dataset").WithCause(err)
	}

	r.Invalidate(tenantID)
	r.logger.Info(ctx, "Historical dataset replaced",
		logger.String("tenant_id", tenantID),
		logger.Int("rows", len(records)),
	)
	return nil
}

// Invalidate drops the cached configuration and dataset of a tenant.
func (r *TenantRepo) Invalidate(tenantID string) {
	r.mu.Lock()
	delete(r.configs, tenantID)
	delete(r.datasets, tenantID)
	r.mu.Unlock()
}

// InvalidateAll drops every cached snapshot.
func (r *TenantRepo) InvalidateAll() {
	r.mu.Lock()
	r.configs = make(map[string]*models.TenantConfig)
	r.datasets = make(map[string]*dataset)
	r.mu.Unlock()
}

func columnsOf(records []models.HistoricalDefaultRecord) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, rec := range records {
		for k := range rec.Fields {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
