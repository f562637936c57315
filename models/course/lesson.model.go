package course

import (
	"time"

	"gorm.io/gorm"
)

// Lesson kinds
const (
	LessonKindVideo      = "VIDEO"
	LessonKindText       = "TEXT"
	LessonKindQuiz       = "QUIZ"
	LessonKindAssignment = "ASSIGNMENT"
)

// Lesson is the atomic unit of course content. Ordering is global within the
// course: modules are ordered by their OrderIndex, lessons by OrderIndex
// within a module. AccessDelayMinutes and RequiresPreviousCompletion drive
// the availability computation.
type Lesson struct {
	gorm.Model
	CourseID                   uint   `json:"course_id" gorm:"index;not null"`
	ModuleID                   uint   `json:"module_id" gorm:"index;not null;uniqueIndex:idx_lesson_module_order"`
	Title                      string `json:"title"`
	Kind                       string `json:"kind" gorm:"default:'TEXT'"` // VIDEO, TEXT, QUIZ, ASSIGNMENT
	OrderIndex                 int    `json:"order_index" gorm:"default:0;uniqueIndex:idx_lesson_module_order"`
	AccessDelayMinutes         int    `json:"access_delay_minutes" gorm:"default:0"`
	RequiresPreviousCompletion bool   `json:"requires_previous_completion" gorm:"default:true"`
	IsPublished                bool   `json:"is_published" gorm:"default:false"`
	IsDeleted                  bool   `gorm:"default:false"`
}

// AccessDelay returns the configured delay as a duration.
func (l *Lesson) AccessDelay() time.Duration {
	return time.Duration(l.AccessDelayMinutes) * time.Minute
}

// VideoLesson is the side record for VIDEO lessons.
type VideoLesson struct {
	gorm.Model
	LessonID         uint   `json:"lesson_id" gorm:"uniqueIndex;not null"`
	VideoURL         string `json:"video_url"`
	DurationSeconds  int    `json:"duration_seconds" gorm:"default:0"`
	WatchThresholdPc int    `json:"watch_threshold_pc" gorm:"default:80"` // % watched that counts as done
	IsDeleted        bool   `gorm:"default:false"`
}

// TextLesson is the side record for TEXT lessons.
type TextLesson struct {
	gorm.Model
	LessonID  uint   `json:"lesson_id" gorm:"uniqueIndex;not null"`
	Body      string `json:"body" gorm:"type:text"`
	IsDeleted bool   `gorm:"default:false"`
}

// LessonContent is the lesson's typed payload, resolved once at load time
// instead of probing per-kind tables ad hoc. Exactly one field matching
// Kind is set.
type LessonContent struct {
	Kind       string       `json:"kind"`
	Video      *VideoLesson `json:"video,omitempty"`
	Text       *TextLesson  `json:"text,omitempty"`
	Quiz       *Quiz        `json:"quiz,omitempty"`
	Assignment *Assignment  `json:"assignment,omitempty"`
}
