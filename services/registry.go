package services

import (
	"time"

	"github.com/Zazh/dpa-lms-sub000/config"

	"gorm.io/gorm"
)

// Registry wires the engine services together in dependency order:
// availability feeds progress, progress feeds the aggregator, the aggregator
// fires graduation.
type Registry struct {
	Availability *AvailabilityService
	Progress     *ProgressService
	Enrollments  *EnrollmentService
	Quizzes      *QuizService
	Assignments  *AssignmentService
	Graduation   *GraduationService
	Tasks        *TaskRunner
	Payments     PaymentGateway
}

// NewRegistry builds the full service graph on one database handle.
func NewRegistry(db *gorm.DB, tasks *TaskRunner, notifier Notifier, renderer CertificateRenderer, payments PaymentGateway) *Registry {
	availability := NewAvailabilityService(db)
	graduation := NewGraduationService(db, tasks, notifier, renderer)
	enrollments := NewEnrollmentService(db, availability, graduation)
	progress := NewProgressService(db, availability, enrollments)
	quizzes := NewQuizService(db, progress)
	assignments := NewAssignmentService(db, progress)

	return &Registry{
		Availability: availability,
		Progress:     progress,
		Enrollments:  enrollments,
		Quizzes:      quizzes,
		Assignments:  assignments,
		Graduation:   graduation,
		Tasks:        tasks,
		Payments:     payments,
	}
}

// NewDefaultRegistry builds the production graph from AppConfig.
func NewDefaultRegistry(db *gorm.DB) *Registry {
	cfg := config.AppConfig
	tasks := NewTaskRunner(cfg.TaskMaxRetries, time.Duration(cfg.TaskRetryDelaySec)*time.Second)
	return NewRegistry(db, tasks, NewEmailNotifier(), NewPdfServiceRenderer(), NewRestPaymentGateway())
}
