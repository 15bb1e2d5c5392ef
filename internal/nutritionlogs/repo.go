package nutritionlogs

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/calorielens-backend/pkg/db/models"
	"github.com/angelmondragon/calorielens-backend/pkg/pagination"
)

// Repository exposes persistence helpers for nutrition logs.
type Repository interface {
	Create(ctx context.Context, log *models.NutritionLog) error
	ListSince(ctx context.Context, userID string, since time.Time) ([]models.NutritionLog, error)
	List(ctx context.Context, params listLogsParams) ([]models.NutritionLog, *pagination.Cursor, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a nutrition log repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listLogsParams struct {
	UserID string
	Limit  int
	Cursor *pagination.Cursor
}

// storedTime keeps timestamps in one zone and at Postgres precision so
// sqlite's textual comparison orders them the same way.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func (r *repositoryImpl) Create(ctx context.Context, log *models.NutritionLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	log.CreatedAt = storedTime(log.CreatedAt)
	return r.db.WithContext(ctx).Create(log).Error
}

// ListSince returns the user's logs created at or after since. There is no
// upper bound.
func (r *repositoryImpl) ListSince(ctx context.Context, userID string, since time.Time) ([]models.NutritionLog, error) {
	var logs []models.NutritionLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, storedTime(since)).
		Order("created_at ASC, id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listLogsParams) ([]models.NutritionLog, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.NutritionLog{}).Where("user_id = ?", params.UserID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", storedTime(params.Cursor.CreatedAt), params.Cursor.ID)
	}

	var logs []models.NutritionLog
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&logs).Error; err != nil {
		return nil, nil, err
	}

	page, next := pagination.Trim(logs, params.Limit, func(l models.NutritionLog) pagination.Cursor {
		return pagination.Cursor{CreatedAt: l.CreatedAt, ID: l.ID}
	})
	return page, next, nil
}
