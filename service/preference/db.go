package preference

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/naiba/nezha-uptime/model"
)

// DBStore persists preferences in a sqlite table and serves reads from a
// short lived cache in front of it.
type DBStore struct {
	db    *gorm.DB
	cache *cache.Cache
}

// OpenDBStore opens (creating if needed) the sqlite file at path.
func OpenDBStore(path string, debug bool) (*DBStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if debug {
		db = db.Debug()
	}
	return NewDBStore(db)
}

func NewDBStore(db *gorm.DB) (*DBStore, error) {
	if err := db.AutoMigrate(&model.Preference{}); err != nil {
		return nil, err
	}
	return &DBStore{
		db:    db,
		cache: cache.New(5*time.Minute, 10*time.Minute),
	}, nil
}

func (s *DBStore) Get(key string) (string, error) {
	if v, ok := s.cache.Get(key); ok {
		return v.(string), nil
	}
	var p model.Preference
	if err := s.db.Where(&model.Preference{Key: key}).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	s.cache.SetDefault(key, p.Value)
	return p.Value, nil
}

func (s *DBStore) Set(key, value string) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&model.Preference{Key: key, Value: value}).Error
	if err != nil {
		s.cache.Delete(key)
		return err
	}
	s.cache.SetDefault(key, value)
	return nil
}

// Close releases the underlying database handle.
func (s *DBStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
