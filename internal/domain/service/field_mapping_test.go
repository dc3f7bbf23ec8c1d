package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/internal/domain/service"
	"github.com/credicefi/crediface/pkg/errors"
)

func record(fields map[string]string) models.HistoricalDefaultRecord {
	return models.HistoricalDefaultRecord{Fields: fields, Source: "test", Row: 1}
}

func TestMapHistoricalRecord_CanonicalKeys(t *testing.T) {
	p, err := service.MapHistoricalRecord(record(map[string]string{
		"age": "31", "monthly_income": "3500000", "credit_score": "610",
		"debt_to_income_ratio": "0.52", "late_payments": "4", "city": "Cali",
	}))
	require.NoError(t, err)

	assert.Equal(t, 31, p.Age)
	assert.Equal(t, 3_500_000.0, p.MonthlyIncome)
	assert.Equal(t, 610, *p.CreditScore)
	assert.Equal(t, 0.52, *p.DebtToIncomeRatio)
	assert.Equal(t, 4, *p.LatePayments)
	assert.Equal(t, "Cali", p.City)
}

func TestMapHistoricalRecord_LocalizedSchema(t *testing.T) {
	p, err := service.MapHistoricalRecord(record(map[string]string{
		"edad": "28", "ingresos": "1800000", "ciudad": "Barranquilla",
		"score_crediticio": "580", "moroso": "1",
	}))
	require.NoError(t, err)

	assert.Equal(t, 28, p.Age)
	assert.Equal(t, 1_800_000.0, p.MonthlyIncome)
	assert.Equal(t, 580, *p.CreditScore)
	assert.Equal(t, 0.80, *p.DebtToIncomeRatio, "ratio derived from the low income bracket")
	assert.Equal(t, 12, *p.LatePayments, "late payments derived from the default flag")
	assert.Equal(t, "Barranquilla", p.City)
}

func TestMapHistoricalRecord_CanonicalWinsOverAlias(t *testing.T) {
	p, err := service.MapHistoricalRecord(record(map[string]string{"age": "40", "edad": "22"}))
	require.NoError(t, err)
	assert.Equal(t, 40, p.Age)
}

func TestMapHistoricalRecord_MissingFieldsUseFallbacks(t *testing.T) {
	p, err := service.MapHistoricalRecord(record(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, models.FallbackAge, p.Age)
	assert.Equal(t, models.FallbackMonthlyIncome, p.MonthlyIncome)
	assert.Equal(t, models.FallbackCreditScore, *p.CreditScore)
	assert.Equal(t, 0.65, *p.DebtToIncomeRatio)
	assert.Equal(t, models.FallbackLatePayments, *p.LatePayments)
}

func TestMapHistoricalRecord_BlankValueIsMissing(t *testing.T) {
	p, err := service.MapHistoricalRecord(record(map[string]string{"age": "  ", "credit_score": ""}))
	require.NoError(t, err)
	assert.Equal(t, models.FallbackAge, p.Age)
	assert.Equal(t, models.FallbackCreditScore, *p.CreditScore)
}

func TestRatioFromIncome(t *testing.T) {
	tests := []struct {
		income float64
		want   float64
	}{
		{1_200_000, 0.80},
		{1_999_999, 0.80},
		{2_000_000, 0.65},
		{4_999_999, 0.65},
		{5_000_000, 0.30},
		{12_000_000, 0.30},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, service.RatioFromIncome(tt.income), "income %v", tt.income)
	}
}

func TestMapHistoricalRecord_LatePaymentsFromFlag(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   int
	}{
		{"flag true", map[string]string{"defaulted": "true"}, 12},
		{"flag false", map[string]string{"moroso": "0"}, 0},
		{"flag spanish yes", map[string]string{"moroso": "si"}, 12},
		{"flag absent", map[string]string{}, 1},
		{"count beats flag", map[string]string{"late_payments": "2", "defaulted": "1"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := service.MapHistoricalRecord(record(tt.fields))
			require.NoError(t, err)
			assert.Equal(t, tt.want, *p.LatePayments)
		})
	}
}

func TestMapHistoricalRecord_UnparseableValue(t *testing.T) {
	tests := []map[string]string{
		{"edad": "veinte"},
		{"ingresos": "n/a"},
		{"credit_score": "high"},
		{"moroso": "maybe"},
	}
	for _, fields := range tests {
		_, err := service.MapHistoricalRecord(record(fields))
		require.Error(t, err)
		assert.True(t, errors.IsRecordConversion(err))
	}
}

func TestIsConfirmedDefault(t *testing.T) {
	assert.True(t, service.IsConfirmedDefault(record(map[string]string{"moroso": "1"})))
	assert.False(t, service.IsConfirmedDefault(record(map[string]string{"moroso": "0"})))
	assert.False(t, service.IsConfirmedDefault(record(map[string]string{"defaulted": "false"})))
	assert.True(t, service.IsConfirmedDefault(record(map[string]string{"age": "30"})), "rows without a flag are defaults")
}

func TestCanonicalField(t *testing.T) {
	assert.Equal(t, service.FieldAge, service.CanonicalField("edad"))
	assert.Equal(t, service.FieldMonthlyIncome, service.CanonicalField("Ingreso_Mensual"))
	assert.Equal(t, service.FieldCreditScore, service.CanonicalField("puntaje"))
	assert.Equal(t, "", service.CanonicalField("favourite_color"))
	assert.Equal(t, service.FieldAge, service.Aliases(service.FieldAge)[0])
}
