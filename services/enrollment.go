package services

import (
	"errors"
	"log"
	"math"
	"time"

	"github.com/Zazh/dpa-lms-sub000/models"
	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"

	"gorm.io/gorm"
)

// EnrollmentService rolls lesson completions up into a cached course-level
// percentage and owns the membership-triggered provisioning of enrollment
// and progress rows.
type EnrollmentService struct {
	db           *gorm.DB
	availability *AvailabilityService
	graduation   *GraduationService
	now          func() time.Time
}

func NewEnrollmentService(db *gorm.DB, availability *AvailabilityService, graduation *GraduationService) *EnrollmentService {
	return &EnrollmentService{db: db, availability: availability, graduation: graduation, now: time.Now}
}

// Recalculate recomputes the learner's completion percentage for a course
// from scratch and writes the cache back. Reaching 100% fires the graduation
// cascade; the Graduate uniqueness guard makes a repeat recompute a no-op.
func (s *EnrollmentService) Recalculate(userID, courseID uint) error {
	var enrollment courseModels.CourseEnrollment
	err := s.db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotEnrolled
		}
		return err
	}

	var totalLessons int64
	s.db.Model(&courseModels.Lesson{}).
		Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		Count(&totalLessons)

	var completedLessons int64
	s.db.Model(&courseModels.LessonProgress{}).
		Where("user_id = ? AND course_id = ? AND is_completed = ?", userID, courseID, true).
		Count(&completedLessons)

	percentage := float64(0)
	if totalLessons > 0 {
		percentage = round2(float64(completedLessons) / float64(totalLessons) * 100)
	}

	now := s.now()
	enrollment.ProgressPercentage = percentage
	enrollment.CompletedLessonsCount = int(completedLessons)
	enrollment.TotalLessonsCount = int(totalLessons)
	enrollment.LastActivityAt = &now
	if percentage >= 100 && enrollment.CompletedAt == nil {
		enrollment.CompletedAt = &now
	}
	if err := s.db.Save(&enrollment).Error; err != nil {
		return err
	}

	if percentage >= 100 {
		return s.graduation.Trigger(&enrollment)
	}
	return nil
}

// OnGroupJoin provisions a learner who joined a course group: creates or
// reactivates the enrollment and seeds a LessonProgress row for every lesson
// with its computed availability. On reactivation after a prior departure
// progress is reset, unless the learner already holds a terminal Graduate
// record for the course.
func (s *EnrollmentService) OnGroupJoin(userID, groupID uint) (*courseModels.CourseEnrollment, error) {
	var group models.Group
	if err := s.db.Where("id = ? AND is_deleted = ? AND is_active = ?", groupID, false, true).First(&group).Error; err != nil {
		return nil, err
	}

	now := s.now()
	var membership models.GroupMembership
	err := s.db.Where("user_id = ? AND group_id = ?", userID, groupID).First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		membership = models.GroupMembership{UserID: userID, GroupID: groupID, JoinedAt: now}
		if err := s.db.Create(&membership).Error; err != nil {
			// Two near-simultaneous joins: keep the row that won.
			if ferr := s.db.Where("user_id = ? AND group_id = ?", userID, groupID).First(&membership).Error; ferr != nil {
				return nil, err
			}
		}
	} else if err != nil {
		return nil, err
	} else if membership.LeftAt != nil {
		membership.LeftAt = nil
		membership.JoinedAt = now
		if err := s.db.Save(&membership).Error; err != nil {
			return nil, err
		}
	}

	var enrollment courseModels.CourseEnrollment
	err = s.db.Where("user_id = ? AND course_id = ?", userID, group.CourseID).First(&enrollment).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		enrollment = courseModels.CourseEnrollment{
			UserID:    userID,
			CourseID:  group.CourseID,
			GroupID:   groupID,
			IsActive:  true,
			StartedAt: now,
		}
		if err := s.db.Create(&enrollment).Error; err != nil {
			// Enrollment may have been created by a concurrent membership
			// event; fall back to fetch and update.
			if ferr := s.db.Where("user_id = ? AND course_id = ?", userID, group.CourseID).First(&enrollment).Error; ferr != nil {
				return nil, err
			}
			enrollment.GroupID = groupID
			enrollment.IsActive = true
			enrollment.IsDeleted = false
			if err := s.db.Save(&enrollment).Error; err != nil {
				return nil, err
			}
		}
	case err != nil:
		return nil, err
	default:
		// Reactivation. Progress restarts from zero unless the learner
		// already graduated (or was rejected) for this course.
		enrollment.GroupID = groupID
		enrollment.IsActive = true
		enrollment.IsDeleted = false
		if !s.hasTerminalGraduate(userID, group.CourseID) {
			enrollment.ProgressPercentage = 0
			enrollment.CompletedLessonsCount = 0
			enrollment.CompletedAt = nil
			enrollment.StartedAt = now
			// Hard delete: a soft-deleted row would still hold the
			// (user, lesson) unique index against re-provisioning.
			if err := s.db.Unscoped().Where("user_id = ? AND course_id = ?", userID, group.CourseID).
				Delete(&courseModels.LessonProgress{}).Error; err != nil {
				return nil, err
			}
		}
		if err := s.db.Save(&enrollment).Error; err != nil {
			return nil, err
		}
	}

	if err := s.provisionProgressRows(userID, group.CourseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// OnGroupLeave records the departure and deactivates the enrollment. The
// progress rows stay: a later rejoin decides whether they are reset.
func (s *EnrollmentService) OnGroupLeave(userID, groupID uint) error {
	var group models.Group
	if err := s.db.Where("id = ? AND is_deleted = ?", groupID, false).First(&group).Error; err != nil {
		return err
	}

	now := s.now()
	if err := s.db.Model(&models.GroupMembership{}).
		Where("user_id = ? AND group_id = ? AND left_at IS NULL", userID, groupID).
		Update("left_at", now).Error; err != nil {
		return err
	}

	return s.db.Model(&courseModels.CourseEnrollment{}).
		Where("user_id = ? AND course_id = ?", userID, group.CourseID).
		Update("is_active", false).Error
}

// provisionProgressRows seeds a progress row for every published lesson of
// the course, computing availability for each. Existing rows are refreshed,
// not recreated.
func (s *EnrollmentService) provisionProgressRows(userID, courseID uint) error {
	var lessons []courseModels.Lesson
	if err := s.db.Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		Find(&lessons).Error; err != nil {
		return err
	}

	now := s.now()
	for i := range lessons {
		lesson := &lessons[i]

		availableAt, err := s.availability.ComputeAvailableAt(userID, lesson)
		if err != nil {
			return err
		}

		var progress courseModels.LessonProgress
		err = s.db.Where("user_id = ? AND lesson_id = ?", userID, lesson.ID).First(&progress).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			progress = courseModels.LessonProgress{
				UserID:      userID,
				LessonID:    lesson.ID,
				CourseID:    courseID,
				StartedAt:   &now,
				AvailableAt: availableAt,
			}
			if err := s.db.Create(&progress).Error; err != nil {
				log.Printf("[ENROLLMENT] failed to seed progress for user %d lesson %d: %v", userID, lesson.ID, err)
			}
		} else if err != nil {
			return err
		} else if !progress.IsCompleted {
			if err := s.db.Model(&progress).Update("available_at", availableAt).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *EnrollmentService) hasTerminalGraduate(userID, courseID uint) bool {
	var graduate courseModels.Graduate
	err := s.db.Where("user_id = ? AND course_id = ? AND status IN ?",
		userID, courseID, []string{courseModels.GraduateGraduated, courseModels.GraduateRejected}).
		First(&graduate).Error
	return err == nil
}

// round2 rounds to two decimal places, the precision of the cached
// percentage column.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
