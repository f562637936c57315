package services

import (
	"errors"
	"time"

	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"

	"gorm.io/gorm"
)

// Availability states for a lesson as seen by one learner. LOCKED means the
// prerequisite is not completed and no timestamp can be computed yet;
// SCHEDULED means a concrete future instant is known; AVAILABLE means the
// lesson is open now. The three are kept distinct on purpose.
const (
	LessonLocked    = "LOCKED"
	LessonScheduled = "SCHEDULED"
	LessonAvailable = "AVAILABLE"
)

// AvailabilityService computes when a lesson becomes visible to a learner.
// Recomputation is a pure function of current data and safe to repeat.
type AvailabilityService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAvailabilityService(db *gorm.DB) *AvailabilityService {
	return &AvailabilityService{db: db, now: time.Now}
}

// ComputeAvailableAt returns the instant the lesson opens for the user, or
// nil while the preceding lesson is incomplete.
func (s *AvailabilityService) ComputeAvailableAt(userID uint, lesson *courseModels.Lesson) (*time.Time, error) {
	if !lesson.RequiresPreviousCompletion {
		now := s.now()
		return &now, nil
	}

	prev, err := s.PrecedingLesson(lesson)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		// First lesson of the course is always open.
		now := s.now()
		return &now, nil
	}

	var progress courseModels.LessonProgress
	err = s.db.Where("user_id = ? AND lesson_id = ?", userID, prev.ID).First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // locked, no timestamp yet
		}
		return nil, err
	}
	if !progress.IsCompleted || progress.CompletedAt == nil {
		return nil, nil
	}

	at := progress.CompletedAt.Add(lesson.AccessDelay())
	return &at, nil
}

// PrecedingLesson finds the lesson immediately before the given one in
// global course order: previous by order within the same module, else the
// last lesson of the previous module, else nil for the course's first lesson.
func (s *AvailabilityService) PrecedingLesson(lesson *courseModels.Lesson) (*courseModels.Lesson, error) {
	var prev courseModels.Lesson
	err := s.db.
		Where("module_id = ? AND order_index < ? AND is_deleted = ? AND is_published = ?",
			lesson.ModuleID, lesson.OrderIndex, false, true).
		Order("order_index desc").
		First(&prev).Error
	if err == nil {
		return &prev, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// No earlier lesson in this module: walk the previous modules.
	var module courseModels.Module
	if err := s.db.Where("id = ?", lesson.ModuleID).First(&module).Error; err != nil {
		return nil, err
	}

	var prevModules []courseModels.Module
	if err := s.db.
		Where("course_id = ? AND order_index < ? AND is_deleted = ?", module.CourseID, module.OrderIndex, false).
		Order("order_index desc").
		Find(&prevModules).Error; err != nil {
		return nil, err
	}

	for _, m := range prevModules {
		err := s.db.
			Where("module_id = ? AND is_deleted = ? AND is_published = ?", m.ID, false, true).
			Order("order_index desc").
			First(&prev).Error
		if err == nil {
			return &prev, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// NextLesson finds the lesson immediately after the given one in global
// course order, or nil if this is the last lesson.
func (s *AvailabilityService) NextLesson(lesson *courseModels.Lesson) (*courseModels.Lesson, error) {
	var next courseModels.Lesson
	err := s.db.
		Where("module_id = ? AND order_index > ? AND is_deleted = ? AND is_published = ?",
			lesson.ModuleID, lesson.OrderIndex, false, true).
		Order("order_index asc").
		First(&next).Error
	if err == nil {
		return &next, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var module courseModels.Module
	if err := s.db.Where("id = ?", lesson.ModuleID).First(&module).Error; err != nil {
		return nil, err
	}

	var nextModules []courseModels.Module
	if err := s.db.
		Where("course_id = ? AND order_index > ? AND is_deleted = ?", module.CourseID, module.OrderIndex, false).
		Order("order_index asc").
		Find(&nextModules).Error; err != nil {
		return nil, err
	}

	for _, m := range nextModules {
		err := s.db.
			Where("module_id = ? AND is_deleted = ? AND is_published = ?", m.ID, false, true).
			Order("order_index asc").
			First(&next).Error
		if err == nil {
			return &next, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// Refresh recomputes and stores AvailableAt on the learner's progress row,
// if one exists. Called whenever the preceding lesson's completion changes.
func (s *AvailabilityService) Refresh(userID uint, lesson *courseModels.Lesson) error {
	var progress courseModels.LessonProgress
	err := s.db.Where("user_id = ? AND lesson_id = ?", userID, lesson.ID).First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // lazy creation elsewhere
		}
		return err
	}

	at, err := s.ComputeAvailableAt(userID, lesson)
	if err != nil {
		return err
	}
	return s.db.Model(&progress).Update("available_at", at).Error
}

// IsAvailable reports whether the lesson is open right now. A completed
// lesson is always available: finishing something never revokes visibility.
func (s *AvailabilityService) IsAvailable(progress *courseModels.LessonProgress) bool {
	if progress.IsCompleted {
		return true
	}
	return progress.AvailableAt != nil && !s.now().Before(*progress.AvailableAt)
}

// State reports the explicit three-way availability state.
func (s *AvailabilityService) State(progress *courseModels.LessonProgress) string {
	if s.IsAvailable(progress) {
		return LessonAvailable
	}
	if progress.AvailableAt == nil {
		return LessonLocked
	}
	return LessonScheduled
}
