package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/calorielens-backend/pkg/types"
)

// NutritionLog is one append-only entry in a user's food diary.
type NutritionLog struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string            `gorm:"type:text;not null;index:idx_nutrition_logs_user_created,priority:1" json:"user_id"`
	Totals    types.MacroTotals `gorm:"type:jsonb;not null;default:'{}'" json:"totals"`
	CreatedAt time.Time         `gorm:"not null;index:idx_nutrition_logs_user_created,priority:2" json:"created_at"`
}

func (NutritionLog) TableName() string {
	return "nutrition_logs"
}

// BeforeCreate assigns the id client side so sqlite and Postgres behave alike.
func (l *NutritionLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
