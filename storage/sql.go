package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ktakahiro150397/crypto-spot-collector/core"

	"gorm.io/gorm"
)

// SQLTrades implements the core.TradeStore interface using a SQL database
// via GORM. The dialector is supplied by the caller, so any GORM-supported
// database can back the ledger.
type SQLTrades struct {
	db *gorm.DB
}

// FromSQL creates a new SQL trade store instance
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (*SQLTrades, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pooling parameters
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&core.Trade{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLTrades{db: db}, nil
}

// SaveTrade creates or updates a trade record by its exchange trade ID.
func (s *SQLTrades) SaveTrade(trade core.Trade) error {
	if trade.Instrument == "" {
		return core.ErrInstrumentEmpty
	}
	if err := trade.Validate(); err != nil {
		return err
	}

	var existing core.Trade
	result := s.db.Where("id = ?", trade.ID).First(&existing)
	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			return fmt.Errorf("failed to query trade: %w", result.Error)
		}
		if err := s.db.Create(&trade).Error; err != nil {
			return fmt.Errorf("failed to create trade: %w", err)
		}
		return nil
	}

	if err := s.db.Model(&existing).Updates(trade).Error; err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}
	return nil
}

// Trades returns all stored trades for an instrument, ordered by execution
// time.
func (s *SQLTrades) Trades(ctx context.Context, instrument string) ([]core.Trade, error) {
	var records []core.Trade
	result := s.db.WithContext(ctx).
		Where("instrument = ?", instrument).
		Order("occurred_at asc").
		Find(&records)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to read trades: %w", result.Error)
	}

	return records, nil
}
