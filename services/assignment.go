package services

import (
	"errors"
	"fmt"
	"time"

	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"

	"gorm.io/gorm"
)

// AssignmentService runs the human-graded submission workflow. Learners own
// the text and file of a submission; the reviewing instructor owns status,
// score and feedback. A pass propagates to the progress ledger exactly like
// a quiz pass.
type AssignmentService struct {
	db       *gorm.DB
	progress *ProgressService
	now      func() time.Time
}

func NewAssignmentService(db *gorm.DB, progress *ProgressService) *AssignmentService {
	return &AssignmentService{db: db, progress: progress, now: time.Now}
}

// Submit creates the next submission in the learner's chain. Refused while
// one is in review, after a pass, and after any terminal result when the
// assignment does not allow resubmission.
func (s *AssignmentService) Submit(userID, assignmentID uint, text, fileURL string) (*courseModels.AssignmentSubmission, error) {
	var assignment courseModels.Assignment
	if err := s.db.Where("id = ? AND is_deleted = ?", assignmentID, false).First(&assignment).Error; err != nil {
		return nil, err
	}

	var last courseModels.AssignmentSubmission
	err := s.db.Where("user_id = ? AND assignment_id = ?", userID, assignmentID).
		Order("submission_number desc").First(&last).Error
	nextNumber := 1
	if err == nil {
		switch last.Status {
		case courseModels.SubmissionInReview:
			return nil, ErrSubmissionInReview
		case courseModels.SubmissionPassed:
			return nil, ErrAssignmentPassed
		case courseModels.SubmissionNeedsRevision, courseModels.SubmissionFailed:
			if !assignment.AllowResubmission {
				return nil, ErrResubmissionNotAllowed
			}
		}
		nextNumber = last.SubmissionNumber + 1
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	submission := courseModels.AssignmentSubmission{
		UserID:           userID,
		AssignmentID:     assignmentID,
		SubmissionNumber: nextNumber,
		Status:           courseModels.SubmissionInReview,
		Text:             text,
		FileURL:          fileURL,
		SubmittedAt:      s.now(),
	}
	if err := s.db.Create(&submission).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

// Review records the instructor's verdict on an in-review submission. Only
// the instructor-writable fields change; passing marks the assignment's
// lesson completed.
func (s *AssignmentService) Review(reviewerID, submissionID uint, status string, score *float64, feedback string) (*courseModels.AssignmentSubmission, error) {
	switch status {
	case courseModels.SubmissionPassed, courseModels.SubmissionFailed, courseModels.SubmissionNeedsRevision:
	default:
		return nil, fmt.Errorf("invalid review status %q", status)
	}

	var submission courseModels.AssignmentSubmission
	if err := s.db.Where("id = ?", submissionID).First(&submission).Error; err != nil {
		return nil, err
	}
	if submission.Status != courseModels.SubmissionInReview {
		return nil, ErrSubmissionNotInReview
	}

	now := s.now()
	submission.Status = status
	submission.Score = score
	submission.Feedback = feedback
	submission.ReviewerID = &reviewerID
	submission.ReviewedAt = &now
	if err := s.db.Save(&submission).Error; err != nil {
		return nil, err
	}

	if status == courseModels.SubmissionPassed {
		var assignment courseModels.Assignment
		if err := s.db.Where("id = ?", submission.AssignmentID).First(&assignment).Error; err != nil {
			return nil, err
		}
		data := map[string]interface{}{
			"submission_number": submission.SubmissionNumber,
		}
		if score != nil {
			data["assignment_score"] = *score
		}
		if err := s.progress.MarkCompleted(submission.UserID, assignment.LessonID, data); err != nil {
			return nil, err
		}
	}
	return &submission, nil
}

// Submissions lists the learner's submission chain for an assignment in
// order.
func (s *AssignmentService) Submissions(userID, assignmentID uint) ([]courseModels.AssignmentSubmission, error) {
	var submissions []courseModels.AssignmentSubmission
	err := s.db.Where("user_id = ? AND assignment_id = ?", userID, assignmentID).
		Order("submission_number asc").Find(&submissions).Error
	return submissions, err
}
