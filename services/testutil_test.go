package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Zazh/dpa-lms-sub000/database"
	"github.com/Zazh/dpa-lms-sub000/models"
	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory SQLite database with the full schema.
// The shared-cache DSN keeps the database alive across pooled connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	database.RunMigrations(db)
	return db
}

// fakeNotifier records outbound emails instead of sending them.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []fakeEmail
	fail bool
}

type fakeEmail struct {
	To      string
	Subject string
	Body    string
}

func (n *fakeNotifier) Send(toEmail, toName, subject, htmlBody string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, fakeEmail{To: toEmail, Subject: subject, Body: htmlBody})
	return nil
}

func (n *fakeNotifier) Sent() []fakeEmail {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]fakeEmail, len(n.sent))
	copy(out, n.sent)
	return out
}

// fakeRenderer returns a canned URL, failing the first failCount calls.
type fakeRenderer struct {
	mu        sync.Mutex
	calls     int
	failCount int
	url       string
}

func (r *fakeRenderer) Render(payload CertificatePayload) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls <= r.failCount {
		return "", errors.New("pdf service unavailable")
	}
	if r.url != "" {
		return r.url, nil
	}
	return "https://cdn.example.com/certs/" + payload.CertificateNumber + ".pdf", nil
}

func (r *fakeRenderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// testEnv bundles the service graph with its fakes and a settable clock.
type testEnv struct {
	db       *gorm.DB
	registry *Registry
	notifier *fakeNotifier
	renderer *fakeRenderer
	clock    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	notifier := &fakeNotifier{}
	renderer := &fakeRenderer{}
	tasks := NewSynchronousTaskRunner(3)
	registry := NewRegistry(db, tasks, notifier, renderer, NewMemoryPaymentGateway())

	env := &testEnv{
		db:       db,
		registry: registry,
		notifier: notifier,
		renderer: renderer,
		clock:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	env.installClock()
	return env
}

// installClock points every service's clock at the env's settable instant.
func (env *testEnv) installClock() {
	now := func() time.Time { return env.clock }
	env.registry.Availability.now = now
	env.registry.Progress.now = now
	env.registry.Enrollments.now = now
	env.registry.Quizzes.now = now
	env.registry.Assignments.now = now
	env.registry.Graduation.now = now
}

func (env *testEnv) advance(d time.Duration) {
	env.clock = env.clock.Add(d)
}

func (env *testEnv) createUser(t *testing.T, name, role string) *models.User {
	t.Helper()
	user := models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		Role:     role,
		Password: "hashed",
	}
	require.NoError(t, env.db.Create(&user).Error)
	return &user
}

// createCourse builds a published course with one module and lessonCount
// sequential TEXT lessons, plus an active group. Returns the course, its
// lessons in order, and the group.
func (env *testEnv) createCourse(t *testing.T, lessonCount int) (*courseModels.Course, []courseModels.Lesson, *models.Group) {
	t.Helper()

	course := courseModels.Course{Title: "Go Fundamentals", Status: "ACTIVE", IsPublished: true}
	require.NoError(t, env.db.Create(&course).Error)

	module := courseModels.Module{CourseID: course.ID, Title: "Basics", OrderIndex: 1}
	require.NoError(t, env.db.Create(&module).Error)

	lessons := make([]courseModels.Lesson, 0, lessonCount)
	for i := 1; i <= lessonCount; i++ {
		lesson := courseModels.Lesson{
			CourseID:                   course.ID,
			ModuleID:                   module.ID,
			Title:                      fmt.Sprintf("Lesson %d", i),
			Kind:                       courseModels.LessonKindText,
			OrderIndex:                 i,
			RequiresPreviousCompletion: true,
			IsPublished:                true,
		}
		require.NoError(t, env.db.Create(&lesson).Error)
		lessons = append(lessons, lesson)
	}

	group := models.Group{CourseID: course.ID, Title: "Spring Cohort", IsActive: true}
	require.NoError(t, env.db.Create(&group).Error)

	return &course, lessons, &group
}

// createQuiz attaches a quiz with questionCount single-answer questions to
// the given lesson. Each question has 3 answers, the first one correct.
func (env *testEnv) createQuiz(t *testing.T, lesson *courseModels.Lesson, questionCount int, configure func(*courseModels.Quiz)) (*courseModels.Quiz, []courseModels.QuizQuestion, map[uint][]courseModels.QuizAnswer) {
	t.Helper()

	quiz := courseModels.Quiz{
		LessonID:     lesson.ID,
		CourseID:     lesson.CourseID,
		Title:        lesson.Title + " Quiz",
		PassingScore: 70,
	}
	if configure != nil {
		configure(&quiz)
	}
	require.NoError(t, env.db.Create(&quiz).Error)

	questions := make([]courseModels.QuizQuestion, 0, questionCount)
	answers := make(map[uint][]courseModels.QuizAnswer, questionCount)
	for i := 1; i <= questionCount; i++ {
		question := courseModels.QuizQuestion{
			QuizID:     quiz.ID,
			Text:       fmt.Sprintf("Question %d", i),
			Points:     1,
			OrderIndex: i,
		}
		require.NoError(t, env.db.Create(&question).Error)
		questions = append(questions, question)

		for j := 1; j <= 3; j++ {
			answer := courseModels.QuizAnswer{
				QuestionID: question.ID,
				Text:       fmt.Sprintf("Answer %d-%d", i, j),
				IsCorrect:  j == 1,
				OrderIndex: j,
			}
			require.NoError(t, env.db.Create(&answer).Error)
			answers[question.ID] = append(answers[question.ID], answer)
		}
	}
	return &quiz, questions, answers
}

// correctAnswers builds a full-marks submission payload for a quiz created
// with createQuiz.
func correctAnswers(questions []courseModels.QuizQuestion, answers map[uint][]courseModels.QuizAnswer) map[uint][]uint {
	payload := make(map[uint][]uint, len(questions))
	for _, q := range questions {
		for _, a := range answers[q.ID] {
			if a.IsCorrect {
				payload[q.ID] = append(payload[q.ID], a.ID)
			}
		}
	}
	return payload
}

// enroll joins the user into the group and returns the enrollment.
func (env *testEnv) enroll(t *testing.T, userID, groupID uint) *courseModels.CourseEnrollment {
	t.Helper()
	enrollment, err := env.registry.Enrollments.OnGroupJoin(userID, groupID)
	require.NoError(t, err)
	return enrollment
}
