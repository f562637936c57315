package course

import (
	"time"

	"gorm.io/gorm"
)

// CourseEnrollment tracks a learner's enrollment in a course with cached
// progress. ProgressPercentage is always recomputable from LessonProgress
// rows; it is a cache, never a source of truth.
type CourseEnrollment struct {
	gorm.Model
	UserID                uint       `json:"user_id" gorm:"index;not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID              uint       `json:"course_id" gorm:"index;not null;uniqueIndex:idx_enrollment_user_course"`
	GroupID               uint       `json:"group_id" gorm:"index"`
	ProgressPercentage    float64    `json:"progress_percentage" gorm:"default:0"` // 0-100, two decimals
	CompletedLessonsCount int        `json:"completed_lessons_count" gorm:"default:0"`
	TotalLessonsCount     int        `json:"total_lessons_count" gorm:"default:0"`
	IsActive              bool       `json:"is_active" gorm:"default:true"`
	StartedAt             time.Time  `json:"started_at"`
	CompletedAt           *time.Time `json:"completed_at"`
	LastActivityAt        *time.Time `json:"last_activity_at"`
	IsDeleted             bool       `gorm:"default:false"`
}
