package course

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LessonProgress tracks one learner's state on one lesson. AvailableAt is
// nullable on purpose: null means the prerequisite is not completed yet and
// no timestamp can be computed, which is distinct from a timestamp in the
// future.
type LessonProgress struct {
	gorm.Model
	UserID         uint              `json:"user_id" gorm:"index;not null;uniqueIndex:idx_progress_user_lesson"`
	LessonID       uint              `json:"lesson_id" gorm:"index;not null;uniqueIndex:idx_progress_user_lesson"`
	CourseID       uint              `json:"course_id" gorm:"index;not null"`
	IsCompleted    bool              `json:"is_completed" gorm:"default:false"`
	StartedAt      *time.Time        `json:"started_at"`
	CompletedAt    *time.Time        `json:"completed_at"`
	AvailableAt    *time.Time        `json:"available_at"`
	CompletionData datatypes.JSONMap `json:"completion_data"`
}
