// Package sqlkv backs the durable kv store with gorm, for the embedded
// (sqlite) and shared (mysql) deployment profiles.
package sqlkv

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"loan-intake-service/internal/domain/kv"
)

type Entry struct {
	Key       string    `gorm:"primaryKey;size:255;column:k"`
	Value     []byte    `gorm:"column:v"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Entry) TableName() string { return "kv_entries" }

type Store struct{ db *gorm.DB }

// New migrates the kv table and returns the store.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

var _ kv.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var e Entry
	res := s.db.WithContext(ctx).Where("k = ?", key).First(&e)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, kv.ErrNotFound
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return e.Value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	e := Entry{Key: key, Value: value}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "k"}},
			DoUpdates: clause.AssignmentColumns([]string{"v", "updated_at"}),
		}).
		Create(&e).Error
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("k = ?", key).Delete(&Entry{}).Error
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	res := s.db.WithContext(ctx).Model(&Entry{}).
		Where("k LIKE ?", prefix+"%").
		Pluck("k", &keys)
	return keys, res.Error
}
