package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"agentdeck-server/internal/domain/activity"
	"agentdeck-server/internal/platform/errors"
)

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository returns the gorm-backed activity store.
func NewActivityRepository(db *gorm.DB) activity.Repository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Append(ctx context.Context, e *activity.Entry) error {
	model, err := r.toModel(e)
	if err != nil {
		return errors.Wrap(errors.KindStorage, "activity.append", "failed to encode metadata", err)
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now()
	}
	// stored as text; a single zone keeps ordering and range scans lexical
	model.CreatedAt = model.CreatedAt.UTC()
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "activity.append", "failed to append activity", err)
	}
	e.ID = model.ID
	e.CreatedAt = model.CreatedAt
	return nil
}

func (r *activityRepository) Query(ctx context.Context, f activity.Filter) ([]activity.Entry, error) {
	q := r.db.WithContext(ctx).Model(&ActivityLog{})
	if f.Agent != "" {
		q = q.Where("agent = ?", f.Agent)
	}
	if f.Level != "" {
		q = q.Where("level = ?", string(f.Level))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var models []ActivityLog
	if err := q.Order("created_at DESC").Order("id DESC").Find(&models).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "activity.query", "failed to query activity", err)
	}

	entries := make([]activity.Entry, len(models))
	for i := range models {
		entries[i] = r.fromModel(&models[i])
	}
	return entries, nil
}

func (r *activityRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&ActivityLog{})
	if res.Error != nil {
		return 0, errors.Wrap(errors.KindStorage, "activity.delete_before", "failed to prune activity", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *activityRepository) toModel(e *activity.Entry) (*ActivityLog, error) {
	model := &ActivityLog{
		UserID:    e.UserID,
		Agent:     e.Agent,
		Action:    e.Action,
		Details:   e.Details,
		Level:     string(e.Level),
		CreatedAt: e.CreatedAt,
	}
	if len(e.Metadata) > 0 {
		raw, err := sonic.Marshal(e.Metadata)
		if err != nil {
			return nil, err
		}
		model.Metadata = datatypes.JSON(raw)
	}
	return model, nil
}

func (r *activityRepository) fromModel(m *ActivityLog) activity.Entry {
	e := activity.Entry{
		ID:        m.ID,
		UserID:    m.UserID,
		Agent:     m.Agent,
		Action:    m.Action,
		Details:   m.Details,
		Level:     activity.Level(m.Level),
		CreatedAt: m.CreatedAt,
	}
	if len(m.Metadata) > 0 {
		var meta map[string]any
		if err := sonic.Unmarshal(m.Metadata, &meta); err == nil {
			e.Metadata = meta
		}
	}
	return e
}
