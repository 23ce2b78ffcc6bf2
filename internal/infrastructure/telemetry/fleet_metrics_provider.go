// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormFleetMetricsProvider implements FleetMetricsProvider using GORM.
// It queries the terminal and ledger tables directly for aggregated counts.
type GormFleetMetricsProvider struct {
	db *gorm.DB
}

// NewGormFleetMetricsProvider creates a new GormFleetMetricsProvider.
func NewGormFleetMetricsProvider(db *gorm.DB) *GormFleetMetricsProvider {
	return &GormFleetMetricsProvider{db: db}
}

// CountTerminalsByStatus returns the number of terminals per lifecycle status.
func (p *GormFleetMetricsProvider) CountTerminalsByStatus(ctx context.Context) (map[string]int64, error) {
	type result struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("inventory_terminals").
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&results).Error

	if err != nil {
		return nil, err
	}

	m := make(map[string]int64, len(results))
	for _, r := range results {
		m[r.Status] = r.Count
	}

	return m, nil
}

// CountOpenIssuances returns the number of issuance records with no return date.
func (p *GormFleetMetricsProvider) CountOpenIssuances(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("issuance_records").
		Where("return_date IS NULL").
		Count(&count).Error

	return count, err
}

// SumPaymentAmount returns the total recorded payment volume in the ledger.
func (p *GormFleetMetricsProvider) SumPaymentAmount(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := p.db.WithContext(ctx).
		Table("payment_records").
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error

	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
