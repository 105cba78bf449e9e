package sink

import (
	"context"

	"gorm.io/gorm"

	"github.com/vincentmele/flumine/internal/errors"
)

// PostgresStore persists settlement records through GORM.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore migrates the schema and returns a store.
func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&ClearedOrderRecord{}, &ClearedMarketRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrate settlement schema")
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveClearedOrders(ctx context.Context, records []ClearedOrderRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&records).Error
}

func (s *PostgresStore) SaveClearedMarkets(ctx context.Context, records []ClearedMarketRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&records).Error
}
