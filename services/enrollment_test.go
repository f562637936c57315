package services

import (
	"testing"
	"time"

	"github.com/Zazh/dpa-lms-sub000/models"
	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecalculate_NotEnrolled(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	course, _, _ := env.createCourse(t, 2)

	err := env.registry.Enrollments.Recalculate(user.ID, course.ID)
	assert.ErrorIs(t, err, ErrNotEnrolled)
}

func TestRecalculate_RoundsToTwoDecimals(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	course, lessons, group := env.createCourse(t, 3)
	env.enroll(t, user.ID, group.ID)

	require.NoError(t, env.registry.Progress.MarkCompleted(user.ID, lessons[0].ID, nil))

	var enrollment courseModels.CourseEnrollment
	require.NoError(t, env.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, 33.33, enrollment.ProgressPercentage)
	assert.Equal(t, 1, enrollment.CompletedLessonsCount)
	assert.Equal(t, 3, enrollment.TotalLessonsCount)
	assert.Nil(t, enrollment.CompletedAt)
}

func TestRecalculate_CourseWithoutLessons(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	course, _, group := env.createCourse(t, 0)
	env.enroll(t, user.ID, group.ID)

	require.NoError(t, env.registry.Enrollments.Recalculate(user.ID, course.ID))

	var enrollment courseModels.CourseEnrollment
	require.NoError(t, env.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.Zero(t, enrollment.ProgressPercentage)

	// 0% of an empty course never graduates anyone.
	var graduates int64
	env.db.Model(&courseModels.Graduate{}).Where("user_id = ?", user.ID).Count(&graduates)
	assert.Zero(t, graduates)
}

// The full run: join, complete every lesson in order, graduate exactly once.
func TestCourseRun_ThreeLessonsToGraduation(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	course, lessons, group := env.createCourse(t, 3)
	env.enroll(t, user.ID, group.ID)

	expected := []float64{33.33, 66.67, 100}
	for i, lesson := range lessons {
		env.advance(time.Hour)
		require.NoError(t, env.registry.Progress.MarkCompleted(user.ID, lesson.ID, nil))

		var enrollment courseModels.CourseEnrollment
		require.NoError(t, env.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
		assert.Equal(t, expected[i], enrollment.ProgressPercentage)
	}

	var enrollment courseModels.CourseEnrollment
	require.NoError(t, env.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	require.NotNil(t, enrollment.CompletedAt)
	assert.False(t, enrollment.IsActive)

	// Exactly one pending Graduate, even after another recompute.
	require.NoError(t, env.registry.Enrollments.Recalculate(user.ID, course.ID))

	var graduates []courseModels.Graduate
	require.NoError(t, env.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).Find(&graduates).Error)
	require.Len(t, graduates, 1)
	assert.Equal(t, courseModels.GraduatePending, graduates[0].Status)
	assert.Equal(t, float64(100), graduates[0].FinalScore)
	assert.Equal(t, 3, graduates[0].LessonsCompleted)

	// Graduation removed the learner from the group.
	var membership models.GroupMembership
	require.NoError(t, env.db.Where("user_id = ? AND group_id = ?", user.ID, group.ID).First(&membership).Error)
	assert.NotNil(t, membership.LeftAt)

	// And the completion email went out.
	sent := env.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Course Completed", sent[0].Subject)
}

func TestOnGroupJoin_ProvisionsProgressRows(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	course, _, group := env.createCourse(t, 3)

	enrollment := env.enroll(t, user.ID, group.ID)
	assert.Equal(t, course.ID, enrollment.CourseID)
	assert.True(t, enrollment.IsActive)

	var rows []courseModels.LessonProgress
	require.NoError(t, env.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).
		Order("lesson_id asc").Find(&rows).Error)
	require.Len(t, rows, 3)

	// First lesson open, the rest locked.
	require.NotNil(t, rows[0].AvailableAt)
	assert.Nil(t, rows[1].AvailableAt)
	assert.Nil(t, rows[2].AvailableAt)
}

func TestOnGroupJoin_RepeatJoinIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	course, _, group := env.createCourse(t, 2)

	env.enroll(t, user.ID, group.ID)
	env.enroll(t, user.ID, group.ID)

	var enrollments int64
	env.db.Model(&courseModels.CourseEnrollment{}).
		Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&enrollments)
	assert.Equal(t, int64(1), enrollments)

	var memberships int64
	env.db.Model(&models.GroupMembership{}).
		Where("user_id = ? AND group_id = ?", user.ID, group.ID).Count(&memberships)
	assert.Equal(t, int64(1), memberships)
}

func TestOnGroupLeave_DeactivatesEnrollment(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	course, _, group := env.createCourse(t, 2)
	env.enroll(t, user.ID, group.ID)

	require.NoError(t, env.registry.Enrollments.OnGroupLeave(user.ID, group.ID))

	var membership models.GroupMembership
	require.NoError(t, env.db.Where("user_id = ? AND group_id = ?", user.ID, group.ID).First(&membership).Error)
	require.NotNil(t, membership.LeftAt)

	var enrollment courseModels.CourseEnrollment
	require.NoError(t, env.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enrollment).Error)
	assert.False(t, enrollment.IsActive)
}

func TestOnGroupJoin_ReactivationResetsProgress(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	course, lessons, group := env.createCourse(t, 3)
	env.enroll(t, user.ID, group.ID)

	require.NoError(t, env.registry.Progress.MarkCompleted(user.ID, lessons[0].ID, nil))
	require.NoError(t, env.registry.Enrollments.OnGroupLeave(user.ID, group.ID))

	env.advance(30 * 24 * time.Hour)
	enrollment := env.enroll(t, user.ID, group.ID)

	assert.True(t, enrollment.IsActive)
	assert.Zero(t, enrollment.ProgressPercentage)
	assert.Zero(t, enrollment.CompletedLessonsCount)
	assert.Nil(t, enrollment.CompletedAt)
	assert.WithinDuration(t, env.clock, enrollment.StartedAt, 0)

	var completed int64
	env.db.Model(&courseModels.LessonProgress{}).
		Where("user_id = ? AND course_id = ? AND is_completed = ?", user.ID, course.ID, true).Count(&completed)
	assert.Zero(t, completed)

	// Rows were re-seeded for every lesson.
	var rows int64
	env.db.Model(&courseModels.LessonProgress{}).
		Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&rows)
	assert.Equal(t, int64(3), rows)
}

func TestOnGroupJoin_GraduatedLearnerKeepsHistory(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	course, lessons, group := env.createCourse(t, 2)
	env.enroll(t, user.ID, group.ID)

	for _, lesson := range lessons {
		require.NoError(t, env.registry.Progress.MarkCompleted(user.ID, lesson.ID, nil))
	}

	var graduate courseModels.Graduate
	require.NoError(t, env.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&graduate).Error)
	manager := env.createUser(t, "boss", "MANAGER")
	_, err := env.registry.Graduation.Approve(graduate.ID, manager.ID)
	require.NoError(t, err)

	// Rejoining after graduation keeps the completed progress intact.
	env.advance(time.Hour)
	enrollment := env.enroll(t, user.ID, group.ID)
	assert.Equal(t, float64(100), enrollment.ProgressPercentage)
	require.NotNil(t, enrollment.CompletedAt)

	var completed int64
	env.db.Model(&courseModels.LessonProgress{}).
		Where("user_id = ? AND course_id = ? AND is_completed = ?", user.ID, course.ID, true).Count(&completed)
	assert.Equal(t, int64(2), completed)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 33.33, round2(1.0/3.0*100))
	assert.Equal(t, 66.67, round2(2.0/3.0*100))
	assert.Equal(t, 100.0, round2(100))
	assert.Equal(t, 14.29, round2(1.0/7.0*100))
}
