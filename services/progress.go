package services

import (
	"errors"
	"log"
	"time"

	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProgressService is the single source of truth for lesson completion. Every
// completion trigger (video threshold, text open, quiz pass, assignment
// pass, manual override) funnels into MarkCompleted, which is idempotent.
type ProgressService struct {
	db           *gorm.DB
	availability *AvailabilityService
	enrollments  *EnrollmentService
	now          func() time.Time
}

func NewProgressService(db *gorm.DB, availability *AvailabilityService, enrollments *EnrollmentService) *ProgressService {
	return &ProgressService{db: db, availability: availability, enrollments: enrollments, now: time.Now}
}

// GetOrCreate returns the learner's progress row for a lesson, creating it
// lazily with a computed availability on first access.
func (s *ProgressService) GetOrCreate(userID uint, lesson *courseModels.Lesson) (*courseModels.LessonProgress, error) {
	var progress courseModels.LessonProgress
	err := s.db.Where("user_id = ? AND lesson_id = ?", userID, lesson.ID).First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	availableAt, err := s.availability.ComputeAvailableAt(userID, lesson)
	if err != nil {
		return nil, err
	}
	now := s.now()
	progress = courseModels.LessonProgress{
		UserID:      userID,
		LessonID:    lesson.ID,
		CourseID:    lesson.CourseID,
		StartedAt:   &now,
		AvailableAt: availableAt,
	}
	if err := s.db.Create(&progress).Error; err != nil {
		// Concurrent first access: fall back to the existing row.
		if ferr := s.db.Where("user_id = ? AND lesson_id = ?", userID, lesson.ID).First(&progress).Error; ferr == nil {
			return &progress, nil
		}
		return nil, err
	}
	return &progress, nil
}

// MarkCompleted records the first completion of a lesson and runs the
// completion cascade. Calling it again for the same (learner, lesson) is a
// no-op: completed_at is set at most once.
func (s *ProgressService) MarkCompleted(userID, lessonID uint, data map[string]interface{}) error {
	var lesson courseModels.Lesson
	if err := s.db.Where("id = ? AND is_deleted = ?", lessonID, false).First(&lesson).Error; err != nil {
		return err
	}

	progress, err := s.GetOrCreate(userID, &lesson)
	if err != nil {
		return err
	}
	if progress.IsCompleted {
		return nil
	}

	now := s.now()
	progress.IsCompleted = true
	progress.CompletedAt = &now
	if progress.CompletionData == nil {
		progress.CompletionData = datatypes.JSONMap{}
	}
	for k, v := range data {
		progress.CompletionData[k] = v
	}
	if err := s.db.Save(progress).Error; err != nil {
		return err
	}

	return s.onLessonCompleted(userID, &lesson)
}

// onLessonCompleted is the explicit completion cascade: recompute the course
// percentage, then refresh availability of the next lesson in course order.
// The completion itself is already persisted before either step runs.
func (s *ProgressService) onLessonCompleted(userID uint, lesson *courseModels.Lesson) error {
	if err := s.enrollments.Recalculate(userID, lesson.CourseID); err != nil {
		if errors.Is(err, ErrNotEnrolled) {
			// Enrollment lifecycle is owned outside the engine; a completion
			// without an enrollment is a consistency warning, not a failure.
			log.Printf("[PROGRESS] user %d completed lesson %d without enrollment in course %d", userID, lesson.ID, lesson.CourseID)
		} else {
			return err
		}
	}

	next, err := s.availability.NextLesson(lesson)
	if err != nil {
		return err
	}
	if next != nil {
		if err := s.availability.Refresh(userID, next); err != nil {
			return err
		}
	}
	return nil
}
