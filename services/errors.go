package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotEnrolled            = errors.New("user is not enrolled in this course")
	ErrLessonNotAvailable     = errors.New("lesson is not available yet")
	ErrAttemptFinished        = errors.New("quiz attempt is already finished")
	ErrSubmissionInReview     = errors.New("a submission is already in review")
	ErrAssignmentPassed       = errors.New("assignment is already passed")
	ErrResubmissionNotAllowed = errors.New("assignment does not allow resubmission")
	ErrSubmissionNotInReview  = errors.New("submission is not in review")
	ErrGraduateNotPending     = errors.New("graduation is not pending")
)

// Quiz start refusal reasons
const (
	RefusalAlreadyPassed = "already_passed"
	RefusalAttemptLimit  = "attempt_limit"
	RefusalRetryDelay    = "retry_delay"
)

// AttemptRefusedError explains why a quiz start was refused. For the
// retry-delay case ResumeAt carries the exact instant access resumes.
type AttemptRefusedError struct {
	Reason   string
	ResumeAt *time.Time
}

func (e *AttemptRefusedError) Error() string {
	switch e.Reason {
	case RefusalAlreadyPassed:
		return "quiz already passed"
	case RefusalAttemptLimit:
		return "attempt limit reached"
	case RefusalRetryDelay:
		return fmt.Sprintf("retry delay active until %s", e.ResumeAt.Format(time.RFC3339))
	}
	return "quiz attempt refused"
}
