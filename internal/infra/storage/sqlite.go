package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lightning_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage persists the product catalog and user view preferences.
// Market data itself is never stored.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite database at dbPath.
func NewStorage(dbPath string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Pure Go driver, no cgo
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.ProductRecord{}, &domain.AppConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Product Operations
// ======================================================================================

// GetProduct retrieves a catalog row by product code
func (s *Storage) GetProduct(code string) (*domain.ProductRecord, error) {
	var rec domain.ProductRecord
	err := s.db.First(&rec, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListProducts returns catalog rows ordered by code.
func (s *Storage) ListProducts(activeOnly bool) ([]domain.ProductRecord, error) {
	var recs []domain.ProductRecord
	q := s.db.Order("code")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&recs).Error
	return recs, err
}

// SeedProducts inserts products that are not yet in the catalog. Existing
// rows are left untouched.
func (s *Storage) SeedProducts(products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	recs := make([]domain.ProductRecord, 0, len(products))
	for _, p := range products {
		recs = append(recs, domain.ProductRecord{Product: p, IsActive: true})
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&recs).Error
}

// SyncMarkets marks the listed codes active and everything else inactive.
// Unknown codes are added with precision derived from LookupProduct, or
// skipped when the code is not recognised.
func (s *Storage) SyncMarkets(codes map[string]string, now time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.ProductRecord{}).Where("1 = 1").Update("is_active", false).Error; err != nil {
			return err
		}

		for code, alias := range codes {
			var rec domain.ProductRecord
			err := tx.First(&rec, "code = ?", code).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				p, lookupErr := domain.LookupProduct(code)
				if lookupErr != nil {
					continue
				}
				rec = domain.ProductRecord{Product: p}
			case err != nil:
				return err
			}

			rec.Alias = alias
			rec.IsActive = true
			rec.LastSyncedAt = now
			if err := tx.Save(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SaveConfig saves a user configuration
func (s *Storage) SaveConfig(key, value string) error {
	config := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&config).Error
}

// LoadConfigMap loads all user configurations as a map
func (s *Storage) LoadConfigMap() (map[string]string, error) {
	var configs []domain.AppConfig
	if err := s.db.Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}
	return result, nil
}
