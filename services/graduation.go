package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Zazh/dpa-lms-sub000/models"
	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GraduationService runs the one-time cascade fired when an enrollment first
// reaches 100%, and the manager-driven approve/reject transitions that
// follow. Certificate rendering, dossier assembly and email all go through
// the task runner; their failures never touch the committed graduation
// state.
type GraduationService struct {
	db       *gorm.DB
	tasks    *TaskRunner
	notifier Notifier
	renderer CertificateRenderer
	now      func() time.Time
}

func NewGraduationService(db *gorm.DB, tasks *TaskRunner, notifier Notifier, renderer CertificateRenderer) *GraduationService {
	return &GraduationService{db: db, tasks: tasks, notifier: notifier, renderer: renderer, now: time.Now}
}

// Trigger creates the pending Graduate record, removes the learner from the
// group and deactivates the enrollment. It fires at most once per (learner,
// course): a row that already exists, in any status, makes the call a silent
// no-op, and the unique index resolves the concurrent-recompute race.
func (s *GraduationService) Trigger(enrollment *courseModels.CourseEnrollment) error {
	var existing courseModels.Graduate
	err := s.db.Where("user_id = ? AND course_id = ?", enrollment.UserID, enrollment.CourseID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := s.now()
	graduate := courseModels.Graduate{
		UserID:           enrollment.UserID,
		CourseID:         enrollment.CourseID,
		EnrollmentID:     enrollment.ID,
		Status:           courseModels.GraduatePending,
		FinalScore:       enrollment.ProgressPercentage,
		QuizAverage:      s.quizAverage(enrollment.UserID, enrollment.CourseID),
		LessonsCompleted: enrollment.CompletedLessonsCount,
		EnrolledDays:     int(now.Sub(enrollment.StartedAt).Hours() / 24),
	}
	if err := s.db.Create(&graduate).Error; err != nil {
		// A concurrent recompute got there first; the unique index on
		// (user, course) guarantees a single row either way.
		var winner courseModels.Graduate
		if ferr := s.db.Where("user_id = ? AND course_id = ?", enrollment.UserID, enrollment.CourseID).First(&winner).Error; ferr == nil {
			return nil
		}
		return err
	}

	// Course access ends with graduation; certificate and review access are
	// separate surfaces.
	if enrollment.GroupID != 0 {
		if err := s.db.Model(&models.GroupMembership{}).
			Where("user_id = ? AND group_id = ? AND left_at IS NULL", enrollment.UserID, enrollment.GroupID).
			Update("left_at", now).Error; err != nil {
			log.Printf("[GRADUATION] failed to remove user %d from group %d: %v", enrollment.UserID, enrollment.GroupID, err)
		}
	}
	if err := s.db.Model(enrollment).Update("is_active", false).Error; err != nil {
		return err
	}

	s.notifyAsync(graduate.UserID, "graduation-completed-notice", func(user *models.User, course *courseModels.Course) (string, string) {
		return "Course Completed", courseCompletedBody(user.Name, course.Title, graduate.FinalScore)
	}, graduate.CourseID)

	return nil
}

// Approve transitions a pending graduation to GRADUATED, assigns the
// certificate number and queues certificate rendering plus the archival
// dossier. Refused when the graduation is not pending.
func (s *GraduationService) Approve(graduateID, managerID uint) (*courseModels.Graduate, error) {
	var graduate courseModels.Graduate
	if err := s.db.Where("id = ?", graduateID).First(&graduate).Error; err != nil {
		return nil, err
	}
	if graduate.Status != courseModels.GraduatePending {
		return nil, ErrGraduateNotPending
	}

	now := s.now()
	graduate.Status = courseModels.GraduateGraduated
	graduate.DecidedAt = &now
	graduate.DecidedBy = &managerID
	graduate.CertificateStatus = courseModels.CertificateQueued
	if err := s.db.Save(&graduate).Error; err != nil {
		return nil, err
	}

	certificate := courseModels.Certificate{
		UserID:            graduate.UserID,
		CourseID:          graduate.CourseID,
		GraduateID:        graduate.ID,
		CertificateNumber: newCertificateNumber(now),
		IssuedAt:          now,
	}
	if err := s.db.Create(&certificate).Error; err != nil {
		return nil, err
	}

	s.queueCertificateRender(&graduate, &certificate)
	s.queueDossierAssembly(&graduate)

	s.notifyAsync(graduate.UserID, "certificate-issued-notice", func(user *models.User, course *courseModels.Course) (string, string) {
		return "Certificate Issued", certificateIssuedBody(user.Name, course.Title, certificate.CertificateNumber)
	}, graduate.CourseID)

	return &graduate, nil
}

// Reject transitions a pending graduation to REJECTED. When requested, an
// "attended" document (no certificate) is rendered instead. Refused when the
// graduation is not pending.
func (s *GraduationService) Reject(graduateID, managerID uint, reason string, issueAttendedDoc bool) (*courseModels.Graduate, error) {
	var graduate courseModels.Graduate
	if err := s.db.Where("id = ?", graduateID).First(&graduate).Error; err != nil {
		return nil, err
	}
	if graduate.Status != courseModels.GraduatePending {
		return nil, ErrGraduateNotPending
	}

	now := s.now()
	graduate.Status = courseModels.GraduateRejected
	graduate.DecidedAt = &now
	graduate.DecidedBy = &managerID
	graduate.RejectionReason = reason
	if err := s.db.Save(&graduate).Error; err != nil {
		return nil, err
	}

	if issueAttendedDoc {
		s.queueAttendedRender(&graduate)
	}

	s.notifyAsync(graduate.UserID, "graduation-rejected-notice", func(user *models.User, course *courseModels.Course) (string, string) {
		return "Graduation Review Result", graduationRejectedBody(user.Name, course.Title, reason)
	}, graduate.CourseID)

	return &graduate, nil
}

func (s *GraduationService) queueCertificateRender(graduate *courseModels.Graduate, certificate *courseModels.Certificate) {
	graduateID := graduate.ID
	payload := s.renderPayload(graduate, DocumentCertificate, certificate.CertificateNumber)

	s.tasks.Submit("certificate-render", func() error {
		url, err := s.renderer.Render(payload)
		if err != nil {
			return err
		}
		if err := s.db.Model(certificate).Update("certificate_url", url).Error; err != nil {
			return err
		}
		return s.db.Model(&courseModels.Graduate{}).Where("id = ?", graduateID).
			Update("certificate_status", courseModels.CertificateIssued).Error
	}, func(err error) {
		// Visible to operators; the graduation itself stays committed.
		if uerr := s.db.Model(&courseModels.Graduate{}).Where("id = ?", graduateID).
			Update("certificate_status", courseModels.CertificateError).Error; uerr != nil {
			log.Printf("[GRADUATION] failed to flag certificate error for graduate %d: %v", graduateID, uerr)
		}
	})
}

func (s *GraduationService) queueAttendedRender(graduate *courseModels.Graduate) {
	graduateID := graduate.ID
	payload := s.renderPayload(graduate, DocumentAttended, "")

	s.tasks.Submit("attended-doc-render", func() error {
		url, err := s.renderer.Render(payload)
		if err != nil {
			return err
		}
		return s.db.Model(&courseModels.Graduate{}).Where("id = ?", graduateID).
			Update("attended_doc_url", url).Error
	}, nil)
}

func (s *GraduationService) renderPayload(graduate *courseModels.Graduate, kind, number string) CertificatePayload {
	var user models.User
	s.db.Where("id = ?", graduate.UserID).First(&user)
	var course courseModels.Course
	s.db.Where("id = ?", graduate.CourseID).First(&course)

	return CertificatePayload{
		Kind:              kind,
		LearnerName:       user.Name,
		LearnerEmail:      user.Email,
		CourseTitle:       course.Title,
		FinalScore:        graduate.FinalScore,
		QuizAverage:       graduate.QuizAverage,
		CertificateNumber: number,
		IssuedAt:          s.now(),
	}
}

// notifyAsync queues an email to the learner, honoring their (lazily
// created) notification preferences.
func (s *GraduationService) notifyAsync(userID uint, taskName string, build func(*models.User, *courseModels.Course) (string, string), courseID uint) {
	s.tasks.Submit(taskName, func() error {
		var pref models.NotificationPreference
		err := s.db.Where("user_id = ?", userID).First(&pref).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			pref = models.NotificationPreference{UserID: userID, EmailEnabled: true, GraduationEmails: true}
			if cerr := s.db.Create(&pref).Error; cerr != nil {
				if ferr := s.db.Where("user_id = ?", userID).First(&pref).Error; ferr != nil {
					return cerr
				}
			}
		} else if err != nil {
			return err
		}
		if !pref.EmailEnabled || !pref.GraduationEmails {
			return nil
		}

		var user models.User
		if err := s.db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
			return err
		}
		var course courseModels.Course
		if err := s.db.Where("id = ?", courseID).First(&course).Error; err != nil {
			return err
		}

		subject, body := build(&user, &course)
		return s.notifier.Send(user.Email, user.Name, subject, body)
	}, nil)
}

// quizAverage is the mean of each course quiz's best completed attempt score
// for the learner. Quizzes without a completed attempt count as 0.
func (s *GraduationService) quizAverage(userID, courseID uint) float64 {
	var quizzes []courseModels.Quiz
	s.db.Where("course_id = ? AND is_deleted = ?", courseID, false).Find(&quizzes)
	if len(quizzes) == 0 {
		return 0
	}

	total := float64(0)
	for _, quiz := range quizzes {
		var best float64
		s.db.Model(&courseModels.QuizAttempt{}).
			Where("user_id = ? AND quiz_id = ? AND status = ?", userID, quiz.ID, courseModels.AttemptCompleted).
			Select("COALESCE(MAX(score_percentage), 0)").
			Scan(&best)
		total += best
	}
	return round2(total / float64(len(quizzes)))
}

// Dossier value objects. The schema is fixed so the archive round-trips
// exactly; it is assembled once and never updated.
type DossierLesson struct {
	LessonID    uint                   `json:"lesson_id"`
	Title       string                 `json:"title"`
	Kind        string                 `json:"kind"`
	CompletedAt *time.Time             `json:"completed_at"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

type DossierQuizAttempt struct {
	QuizID          uint       `json:"quiz_id"`
	QuizTitle       string     `json:"quiz_title"`
	AttemptNumber   int        `json:"attempt_number"`
	Status          string     `json:"status"`
	ScorePercentage float64    `json:"score_percentage"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	QuestionsOrder  []uint     `json:"questions_order"`
}

type DossierSubmission struct {
	AssignmentID     uint       `json:"assignment_id"`
	AssignmentTitle  string     `json:"assignment_title"`
	SubmissionNumber int        `json:"submission_number"`
	Status           string     `json:"status"`
	Score            *float64   `json:"score"`
	Feedback         string     `json:"feedback,omitempty"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	ReviewedAt       *time.Time `json:"reviewed_at"`
}

type DossierHistory struct {
	Lessons      []DossierLesson      `json:"lessons"`
	QuizAttempts []DossierQuizAttempt `json:"quiz_attempts"`
	Submissions  []DossierSubmission  `json:"submissions"`
	AssembledAt  time.Time            `json:"assembled_at"`
}

func (s *GraduationService) queueDossierAssembly(graduate *courseModels.Graduate) {
	graduateID := graduate.ID
	userID := graduate.UserID
	courseID := graduate.CourseID

	s.tasks.Submit("dossier-assembly", func() error {
		return s.AssembleDossier(graduateID, userID, courseID)
	}, nil)
}

// AssembleDossier builds the immutable archival copy of the graduate's full
// course history. A dossier that already exists is left untouched.
func (s *GraduationService) AssembleDossier(graduateID, userID, courseID uint) error {
	var existing courseModels.GraduateDossier
	if err := s.db.Where("graduate_id = ?", graduateID).First(&existing).Error; err == nil {
		return nil
	}

	history := DossierHistory{AssembledAt: s.now()}

	var progresses []courseModels.LessonProgress
	if err := s.db.Where("user_id = ? AND course_id = ?", userID, courseID).Find(&progresses).Error; err != nil {
		return err
	}
	for _, p := range progresses {
		var lesson courseModels.Lesson
		s.db.Where("id = ?", p.LessonID).First(&lesson)
		history.Lessons = append(history.Lessons, DossierLesson{
			LessonID:    p.LessonID,
			Title:       lesson.Title,
			Kind:        lesson.Kind,
			CompletedAt: p.CompletedAt,
			Data:        p.CompletionData,
		})
	}

	var quizzes []courseModels.Quiz
	s.db.Where("course_id = ?", courseID).Find(&quizzes)
	for _, quiz := range quizzes {
		var attempts []courseModels.QuizAttempt
		s.db.Where("user_id = ? AND quiz_id = ?", userID, quiz.ID).Order("attempt_number asc").Find(&attempts)
		for _, a := range attempts {
			history.QuizAttempts = append(history.QuizAttempts, DossierQuizAttempt{
				QuizID:          quiz.ID,
				QuizTitle:       quiz.Title,
				AttemptNumber:   a.AttemptNumber,
				Status:          a.Status,
				ScorePercentage: a.ScorePercentage,
				StartedAt:       a.StartedAt,
				CompletedAt:     a.CompletedAt,
				QuestionsOrder:  courseModels.DecodeIDList(a.QuestionsOrder),
			})
		}
	}

	var assignments []courseModels.Assignment
	s.db.Where("course_id = ?", courseID).Find(&assignments)
	for _, assignment := range assignments {
		var submissions []courseModels.AssignmentSubmission
		s.db.Where("user_id = ? AND assignment_id = ?", userID, assignment.ID).Order("submission_number asc").Find(&submissions)
		for _, sub := range submissions {
			history.Submissions = append(history.Submissions, DossierSubmission{
				AssignmentID:     assignment.ID,
				AssignmentTitle:  assignment.Title,
				SubmissionNumber: sub.SubmissionNumber,
				Status:           sub.Status,
				Score:            sub.Score,
				Feedback:         sub.Feedback,
				SubmittedAt:      sub.SubmittedAt,
				ReviewedAt:       sub.ReviewedAt,
			})
		}
	}

	raw, err := json.Marshal(history)
	if err != nil {
		return err
	}

	dossier := courseModels.GraduateDossier{
		GraduateID:  graduateID,
		Reference:   uuid.NewString(),
		History:     datatypes.JSON(raw),
		AssembledAt: history.AssembledAt,
	}
	return s.db.Create(&dossier).Error
}

// newCertificateNumber generates a unique, human-readable certificate
// number.
func newCertificateNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("CERT-%d-%s", now.Year(), suffix)
}
