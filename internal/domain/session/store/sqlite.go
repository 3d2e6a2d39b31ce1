package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"agentdeck-server/internal/domain/session/model"
	"agentdeck-server/internal/platform/storage"
)

type sqliteStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSQLite builds a SQLite-backed login record store over the migrated
// login_records table.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{
		db:  db,
		ttl: cfg.TTL,
	}, nil
}

func (s *sqliteStore) Put(ctx context.Context, rec model.LoginRecord) error {
	if rec.UserID == 0 {
		return fmt.Errorf("user id required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", rec.UserID).Delete(&storage.LoginRecord{}).Error; err != nil {
			return err
		}
		row := &storage.LoginRecord{
			UserID:       rec.UserID,
			SessionToken: rec.SessionToken,
			LoginTimeMs:  rec.LoginTime.UnixMilli(),
		}
		return tx.Create(row).Error
	})
}

func (s *sqliteStore) Get(ctx context.Context, userID uint) (model.LoginRecord, error) {
	var row storage.LoginRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.LoginRecord{}, ErrNotFound
	}
	if err != nil {
		return model.LoginRecord{}, err
	}
	rec := model.LoginRecord{
		UserID:       row.UserID,
		SessionToken: row.SessionToken,
		LoginTime:    time.UnixMilli(row.LoginTimeMs),
	}
	if expired(rec, s.ttl, time.Now()) {
		return model.LoginRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *sqliteStore) Delete(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&storage.LoginRecord{}).Error
}

func (s *sqliteStore) DeleteIfCurrent(ctx context.Context, userID uint, sessionToken string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND session_token = ?", userID, sessionToken).
		Delete(&storage.LoginRecord{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&storage.LoginRecord{}).Count(&total).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":        "sqlite",
		"total":       total,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}
