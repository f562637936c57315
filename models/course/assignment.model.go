package course

import (
	"time"

	"gorm.io/gorm"
)

// Assignment submission statuses
const (
	SubmissionInReview      = "IN_REVIEW"
	SubmissionPassed        = "PASSED"
	SubmissionFailed        = "FAILED"
	SubmissionNeedsRevision = "NEEDS_REVISION"
)

// Assignment is the side record for ASSIGNMENT lessons.
type Assignment struct {
	gorm.Model
	LessonID          uint   `json:"lesson_id" gorm:"uniqueIndex;not null"`
	CourseID          uint   `json:"course_id" gorm:"index;not null"`
	Title             string `json:"title"`
	Description       string `json:"description" gorm:"type:text"`
	AllowResubmission bool   `json:"allow_resubmission" gorm:"default:true"`
	IsDeleted         bool   `gorm:"default:false"`
}

// AssignmentSubmission is one submission in a learner's chain for an
// assignment. Text and FileURL belong to the learner; Status, Score,
// Feedback, ReviewerID belong to the reviewing instructor.
type AssignmentSubmission struct {
	gorm.Model
	UserID           uint       `json:"user_id" gorm:"index;not null;uniqueIndex:idx_submission_user_assignment_no"`
	AssignmentID     uint       `json:"assignment_id" gorm:"index;not null;uniqueIndex:idx_submission_user_assignment_no"`
	SubmissionNumber int        `json:"submission_number" gorm:"default:1;uniqueIndex:idx_submission_user_assignment_no"`
	Status           string     `json:"status" gorm:"default:'IN_REVIEW'"` // IN_REVIEW, PASSED, FAILED, NEEDS_REVISION
	Text             string     `json:"text" gorm:"type:text"`
	FileURL          string     `json:"file_url"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	ReviewedAt       *time.Time `json:"reviewed_at"`
	ReviewerID       *uint      `json:"reviewer_id"`
	Score            *float64   `json:"score"`
	Feedback         string     `json:"feedback" gorm:"type:text"`
}
