package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/pkg/errors"
)

// Canonical column names of a profile.
const (
	FieldAge               = "age"
	FieldMonthlyIncome     = "monthly_income"
	FieldCreditScore       = "credit_score"
	FieldDebtToIncomeRatio = "debt_to_income_ratio"
	FieldLatePayments      = "late_payments"
	FieldDefaulted         = "defaulted"
	FieldCity              = "city"
)

// fieldAliases lists, per canonical field, the keys accepted in lookup order.
// The canonical key always comes first.
var fieldAliases = map[string][]string{
	FieldAge:               {FieldAge, "edad"},
	FieldMonthlyIncome:     {FieldMonthlyIncome, "income", "ingresos", "ingreso_mensual"},
	FieldCreditScore:       {FieldCreditScore, "score", "score_crediticio", "puntaje"},
	FieldDebtToIncomeRatio: {FieldDebtToIncomeRatio, "dti", "debt_ratio", "relacion_deuda_ingreso"},
	FieldLatePayments:      {FieldLatePayments, "pagos_atrasados", "atrasos"},
	FieldDefaulted:         {FieldDefaulted, "default", "is_default", "moroso", "incumplimiento"},
	FieldCity:              {FieldCity, "ciudad"},
}

// Derived values used when a record lacks a ratio or a late-payment count.
const (
	lowIncomeCeiling  = 2_000_000.0
	midIncomeCeiling  = 5_000_000.0
	lowIncomeRatio    = 0.80
	midIncomeRatio    = 0.65
	highIncomeRatio   = 0.30
	defaultedLateRuns = 12
)

// Aliases returns the accepted keys for a canonical field, canonical first.
func Aliases(field string) []string {
	return append([]string(nil), fieldAliases[field]...)
}

// CanonicalField resolves any accepted key to its canonical field name.
// It returns "" for keys that belong to no field.
func CanonicalField(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	for canonical, aliases := range fieldAliases {
		for _, a := range aliases {
			if a == k {
				return canonical
			}
		}
	}
	return ""
}

// MapHistoricalRecord converts a tabular row into a RawProfile. Every field is looked
// up by canonical key, then aliases, then its fallback. The ratio is derived from the
// income bracket and the late-payment count from the default flag when absent.
//
// Missing fields never fail. A field that is present but unparseable returns a
// record conversion error so the scanner can skip the row.
func MapHistoricalRecord(rec models.HistoricalDefaultRecord) (models.RawProfile, error) {
	var p models.RawProfile

	age, ok, err := lookupNumber(rec, FieldAge)
	if err != nil {
		return p, err
	}
	if ok {
		p.Age = int(math.Round(age))
	} else {
		p.Age = models.FallbackAge
	}

	income, ok, err := lookupNumber(rec, FieldMonthlyIncome)
	if err != nil {
		return p, err
	}
	if ok && income > 0 {
		p.MonthlyIncome = income
	} else {
		p.MonthlyIncome = models.FallbackMonthlyIncome
	}

	score, ok, err := lookupNumber(rec, FieldCreditScore)
	if err != nil {
		return p, err
	}
	s := models.FallbackCreditScore
	if ok {
		s = int(math.Round(score))
	}
	p.CreditScore = &s

	ratio, ok, err := lookupNumber(rec, FieldDebtToIncomeRatio)
	if err != nil {
		return p, err
	}
	if !ok {
		ratio = RatioFromIncome(p.MonthlyIncome)
	}
	p.DebtToIncomeRatio = &ratio

	late, ok, err := lookupNumber(rec, FieldLatePayments)
	if err != nil {
		return p, err
	}
	var n int
	if ok {
		n = int(math.Round(late))
	} else {
		n, err = latePaymentsFromFlag(rec)
		if err != nil {
			return p, err
		}
	}
	p.LatePayments = &n

	if _, city, found := rec.Get(fieldAliases[FieldCity]...); found {
		p.City = city
	}
	return p, nil
}

// RatioFromIncome estimates a debt-to-income ratio from the monthly income bracket.
// Lower income assumes a heavier debt burden.
func RatioFromIncome(income float64) float64 {
	switch {
	case income < lowIncomeCeiling:
		return lowIncomeRatio
	case income < midIncomeCeiling:
		return midIncomeRatio
	default:
		return highIncomeRatio
	}
}

// DefaultFlag reports the record's default flag. present is false when the record
// has no flag column.
func DefaultFlag(rec models.HistoricalDefaultRecord) (value bool, present bool, err error) {
	key, raw, found := rec.Get(fieldAliases[FieldDefaulted]...)
	if !found {
		return false, false, nil
	}
	v, err := parseFlag(key, raw)
	if err != nil {
		return false, true, err
	}
	return v, true, nil
}

// IsConfirmedDefault reports whether a record belongs in the default set. Rows without
// a flag column are assumed to be defaults; only an explicit false excludes a row.
func IsConfirmedDefault(rec models.HistoricalDefaultRecord) bool {
	v, present, err := DefaultFlag(rec)
	if !present || err != nil {
		return true
	}
	return v
}

func latePaymentsFromFlag(rec models.HistoricalDefaultRecord) (int, error) {
	v, present, err := DefaultFlag(rec)
	if err != nil {
		return 0, err
	}
	switch {
	case !present:
		return models.FallbackLatePayments, nil
	case v:
		return defaultedLateRuns, nil
	default:
		return 0, nil
	}
}

func lookupNumber(rec models.HistoricalDefaultRecord, field string) (float64, bool, error) {
	key, raw, found := rec.Get(fieldAliases[field]...)
	if !found {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, "_", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, errors.ErrRecordConversion(key, raw).
			WithMetadata("row", rec.Row).
			WithMetadata("source", rec.Source)
	}
	return v, true, nil
}

func parseFlag(key, raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "si", "sí", "s":
		return true, nil
	case "0", "false", "f", "no", "n":
		return false, nil
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v != 0, nil
	}
	return false, errors.ErrRecordConversion(key, raw)
}
