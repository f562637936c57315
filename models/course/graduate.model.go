package course

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Graduate statuses
const (
	GraduatePending   = "PENDING"
	GraduateGraduated = "GRADUATED"
	GraduateRejected  = "REJECTED"
)

// Certificate generation statuses on a Graduate row
const (
	CertificateQueued = "QUEUED"
	CertificateIssued = "ISSUED"
	CertificateError  = "ERROR"
)

// Graduate is created exactly once when a learner's enrollment first reaches
// 100%. The (user, course) unique index is the guard against a double fire:
// a second recompute races into a uniqueness violation, not a second row.
type Graduate struct {
	gorm.Model
	UserID            uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_graduate_user_course"`
	CourseID          uint       `json:"course_id" gorm:"not null;uniqueIndex:idx_graduate_user_course"`
	EnrollmentID      uint       `json:"enrollment_id" gorm:"index;not null"`
	Status            string     `json:"status" gorm:"default:'PENDING'"` // PENDING, GRADUATED, REJECTED
	FinalScore        float64    `json:"final_score"`
	QuizAverage       float64    `json:"quiz_average"`
	LessonsCompleted  int        `json:"lessons_completed"`
	EnrolledDays      int        `json:"enrolled_days"`
	DecidedAt         *time.Time `json:"decided_at"`
	DecidedBy         *uint      `json:"decided_by"`
	RejectionReason   string     `json:"rejection_reason"`
	CertificateStatus string     `json:"certificate_status"` // empty until approval, then QUEUED, ISSUED or ERROR
	AttendedDocURL    string     `json:"attended_doc_url"`   // non-certificate document on rejection
}

// Certificate represents an issued certificate for course completion
type Certificate struct {
	gorm.Model
	UserID            uint      `json:"user_id" gorm:"index;not null"`
	CourseID          uint      `json:"course_id" gorm:"index;not null"`
	GraduateID        uint      `json:"graduate_id" gorm:"uniqueIndex;not null"`
	CertificateNumber string    `json:"certificate_number" gorm:"unique"`
	CertificateURL    string    `json:"certificate_url"`
	IssuedAt          time.Time `json:"issued_at"`
	IsDeleted         bool      `gorm:"default:false"`
}

// GraduateDossier is a point-in-time denormalized copy of the graduate's
// full lesson/quiz/assignment history, independent of later edits or
// deletions to the live records. Assembled once, never updated.
type GraduateDossier struct {
	gorm.Model
	GraduateID  uint           `json:"graduate_id" gorm:"uniqueIndex;not null"`
	Reference   string         `json:"reference" gorm:"unique"` // external lookup key
	History     datatypes.JSON `json:"history"`
	AssembledAt time.Time      `json:"assembled_at"`
}
