// Package seed installs the demonstration institution "banco_demo" and its
// historical dataset into any tenant store.
package seed

import (
	"bytes"
	"context"
	"embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/internal/domain/repository"
	"github.com/credicefi/crediface/pkg/logger"
)

// DemoTenantID is the tenant installed by the seeder.
const DemoTenantID = "banco_demo"

//go:embed sample/banco_demo.json sample/historical_defaults.csv
var sample embed.FS

// columnWriter is implemented by stores that keep the dataset header order.
type columnWriter interface {
	WriteDataset(ctx context.Context, tenantID string, columns []string, records []models.HistoricalDefaultRecord) error
}

// Result describes what a seed run wrote.
type Result struct {
	TenantID string               `json:"tenant_id"`
	Config   *models.TenantConfig `json:"config,omitempty"`
	Records  int                  `json:"records"`
}

// Seeder writes the demonstration tenant.
type Seeder struct {
	writer repository.TenantWriter
	logger logger.Logger
	now    func() time.Time
}

// NewSeeder creates a seeder over writer.
func NewSeeder(writer repository.TenantWriter, log logger.Logger) *Seeder {
	return &Seeder{writer: writer, logger: log.WithComponent("seed"), now: time.Now}
}

// DemoConfig returns the demonstration configuration.
func DemoConfig() (*models.TenantConfig, error) {
	raw, err := sample.ReadFile("sample/banco_demo.json")
	if err != nil {
		return nil, err
	}
	var cfg models.TenantConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode sample config: %w", err)
	}
	return &cfg, nil
}

// DemoDataset returns the header and rows of the demonstration dataset.
func DemoDataset() ([]string, []models.HistoricalDefaultRecord, error) {
	raw, err := sample.ReadFile("sample/historical_defaults.csv")
	if err != nil {
		return nil, nil, err
	}
	rows, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("decode sample dataset: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	header := rows[0]
	records := make([]models.HistoricalDefaultRecord, 0, len(rows)-1)
	for i, values := range rows[1:] {
		fields := make(map[string]string, len(header))
		for j, col := range header {
			fields[col] = values[j]
		}
		records = append(records, models.HistoricalDefaultRecord{Fields: fields, Source: "seed", Row: i + 1})
	}
	return header, records, nil
}

// SeedConfig writes the demonstration configuration.
func (s *Seeder) SeedConfig(ctx context.Context) (*Result, error) {
	cfg, err := DemoConfig()
	if err != nil {
		return nil, err
	}
	cfg.InstitutionInfo.Created = s.now().Format("2006-01-02T15:04:05")

	if err := s.writer.SaveConfig(ctx, DemoTenantID, cfg); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Sample config created", logger.String("tenant_id", DemoTenantID))
	return &Result{TenantID: DemoTenantID, Config: cfg}, nil
}

// SeedData writes the demonstration dataset.
func (s *Seeder) SeedData(ctx context.Context) (*Result, error) {
	header, records, err := DemoDataset()
	if err != nil {
		return nil, err
	}

	if cw, ok := s.writer.(columnWriter); ok {
		err = cw.WriteDataset(ctx, DemoTenantID, header, records)
	} else {
		err = s.writer.ReplaceHistoricalDefaults(ctx, DemoTenantID, records)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Sample data created",
		logger.String("tenant_id", DemoTenantID),
		logger.Int("records", len(records)),
	)
	return &Result{TenantID: DemoTenantID, Records: len(records)}, nil
}

// SeedAll writes both the configuration and the dataset.
func (s *Seeder) SeedAll(ctx context.Context) (*Result, error) {
	cfgRes, err := s.SeedConfig(ctx)
	if err != nil {
		return nil, err
	}
	dataRes, err := s.SeedData(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{TenantID: DemoTenantID, Config: cfgRes.Config, Records: dataRes.Records}, nil
}
