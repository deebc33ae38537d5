package storage

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"subskit/domain/repository"
	"subskit/internal/errors"
)

// record is the single-table schema of the sqlite-backed store.
type record struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value []byte `gorm:"column:value"`
}

func (record) TableName() string { return "state" }

type sqliteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (creating if needed) a sqlite-backed KeyValue at path.
func NewSQLiteStore(path string) (repository.KeyValue, error) {
	if path == "" {
		return nil, errors.New("sqlite store requires a path")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite store")
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, errors.Wrap(err, "migrate sqlite store")
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Get(key string) ([]byte, error) {
	var row record
	err := s.db.First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "read sqlite store")
	}

	return row.Value, nil
}

func (s *sqliteStore) Set(key string, value []byte) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&record{Key: key, Value: value}).Error

	return errors.Wrap(err, "write sqlite store")
}

func (s *sqliteStore) Delete(key string) error {
	err := s.db.Delete(&record{}, "key = ?", key).Error

	return errors.Wrap(err, "delete from sqlite store")
}
