package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Entry struct {
	Namespace string    `gorm:"primaryKey;size:64"`
	Name      string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Entry) TableName() string { return "session_entries" }

// Gorm keeps session entries in a SQL table, one row per key, scoped by a
// namespace so several clients can share a database.
type Gorm struct {
	db        *gorm.DB
	namespace string
}

func NewGorm(ctx context.Context, db *gorm.DB, namespace string) (*Gorm, error) {
	if err := db.WithContext(ctx).AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate session table: %w", err)
	}
	return &Gorm{db: db, namespace: namespace}, nil
}

func (g *Gorm) Get(ctx context.Context, key string) (string, bool, error) {
	var e Entry
	err := g.db.WithContext(ctx).
		Where("namespace = ? AND name = ?", g.namespace, key).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return e.Value, true, nil
}

func (g *Gorm) Set(ctx context.Context, key, value string) error {
	e := Entry{Namespace: g.namespace, Name: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (g *Gorm) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := g.db.WithContext(ctx).
		Where("namespace = ? AND name IN ?", g.namespace, keys).
		Delete(&Entry{}).Error
	if err != nil {
		return fmt.Errorf("delete session keys: %w", err)
	}
	return nil
}
