package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"news-impact-engine/internal/types"
)

// GetBenchmarkReturns looks up the benchmark's stored returns for the
// trading day at or before the event date. A missing row means the
// benchmark collaborator has not caught up yet; callers see (nil, nil)
// and keep abnormal returns null.
func (s *Store) GetBenchmarkReturns(ctx context.Context, benchmark string, eventDate time.Time) (*types.HorizonReturns, error) {
	var row types.BenchmarkReturn
	err := s.db.WithContext(ctx).
		Where("ticker = ? AND return_date <= ?", benchmark, eventDate).
		Order("return_date DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &types.HorizonReturns{
		R1D:  row.Return1D,
		R3D:  row.Return3D,
		R5D:  row.Return5D,
		R10D: row.Return10D,
	}, nil
}

// UpsertBenchmarkReturn stores one benchmark return row.
func (s *Store) UpsertBenchmarkReturn(ctx context.Context, row *types.BenchmarkReturn) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ticker"}, {Name: "return_date"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

// SectorETF resolves the sector benchmark from the curated mapping
// table. Company-name fragment fallback lives in the static mapper;
// the table is exact-ticker only.
func (s *Store) SectorETF(ctx context.Context, ticker, _ string) (string, bool) {
	var m types.SectorMapping
	err := s.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		First(&m).Error
	if err != nil || m.SectorETF == "" {
		return "", false
	}
	return m.SectorETF, true
}
