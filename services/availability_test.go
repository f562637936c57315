package services

import (
	"testing"
	"time"

	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAvailableAt_FirstLessonOpensImmediately(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	_, lessons, _ := env.createCourse(t, 3)

	at, err := env.registry.Availability.ComputeAvailableAt(user.ID, &lessons[0])
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.Equal(t, env.clock, *at)
}

func TestComputeAvailableAt_LockedWhilePrerequisiteIncomplete(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	_, lessons, _ := env.createCourse(t, 3)

	// No progress on lesson 1 at all.
	at, err := env.registry.Availability.ComputeAvailableAt(user.ID, &lessons[1])
	require.NoError(t, err)
	assert.Nil(t, at)

	// Started but not completed is still locked.
	started := env.clock
	require.NoError(t, env.db.Create(&courseModels.LessonProgress{
		UserID: user.ID, LessonID: lessons[0].ID, CourseID: lessons[0].CourseID, StartedAt: &started,
	}).Error)

	at, err = env.registry.Availability.ComputeAvailableAt(user.ID, &lessons[1])
	require.NoError(t, err)
	assert.Nil(t, at)
}

func TestComputeAvailableAt_DelayCountsFromCompletion(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	_, lessons, _ := env.createCourse(t, 2)

	require.NoError(t, env.db.Model(&courseModels.Lesson{}).
		Where("id = ?", lessons[1].ID).Update("access_delay_minutes", 45).Error)
	lessons[1].AccessDelayMinutes = 45

	completedAt := env.clock
	require.NoError(t, env.db.Create(&courseModels.LessonProgress{
		UserID: user.ID, LessonID: lessons[0].ID, CourseID: lessons[0].CourseID,
		IsCompleted: true, CompletedAt: &completedAt,
	}).Error)

	at, err := env.registry.Availability.ComputeAvailableAt(user.ID, &lessons[1])
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.WithinDuration(t, completedAt.Add(45*time.Minute), *at, 0)
}

func TestComputeAvailableAt_NoPrerequisiteRequirement(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	_, lessons, _ := env.createCourse(t, 3)

	require.NoError(t, env.db.Model(&courseModels.Lesson{}).
		Where("id = ?", lessons[2].ID).Update("requires_previous_completion", false).Error)
	lessons[2].RequiresPreviousCompletion = false

	at, err := env.registry.Availability.ComputeAvailableAt(user.ID, &lessons[2])
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.Equal(t, env.clock, *at)
}

func TestPrecedingLesson_WalksAcrossModules(t *testing.T) {
	env := newTestEnv(t)
	course, lessons, _ := env.createCourse(t, 2)

	module2 := courseModels.Module{CourseID: course.ID, Title: "Advanced", OrderIndex: 2}
	require.NoError(t, env.db.Create(&module2).Error)
	first := courseModels.Lesson{
		CourseID: course.ID, ModuleID: module2.ID, Title: "Lesson 3",
		Kind: courseModels.LessonKindText, OrderIndex: 1,
		RequiresPreviousCompletion: true, IsPublished: true,
	}
	require.NoError(t, env.db.Create(&first).Error)

	prev, err := env.registry.Availability.PrecedingLesson(&first)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, lessons[1].ID, prev.ID)

	next, err := env.registry.Availability.NextLesson(&lessons[1])
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, first.ID, next.ID)

	last, err := env.registry.Availability.NextLesson(&first)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestState_ThreeWay(t *testing.T) {
	env := newTestEnv(t)
	svc := env.registry.Availability

	locked := &courseModels.LessonProgress{}
	assert.Equal(t, LessonLocked, svc.State(locked))
	assert.False(t, svc.IsAvailable(locked))

	future := env.clock.Add(2 * time.Hour)
	scheduled := &courseModels.LessonProgress{AvailableAt: &future}
	assert.Equal(t, LessonScheduled, svc.State(scheduled))
	assert.False(t, svc.IsAvailable(scheduled))

	past := env.clock.Add(-time.Minute)
	open := &courseModels.LessonProgress{AvailableAt: &past}
	assert.Equal(t, LessonAvailable, svc.State(open))
	assert.True(t, svc.IsAvailable(open))

	// Exactly at the boundary counts as open.
	now := env.clock
	boundary := &courseModels.LessonProgress{AvailableAt: &now}
	assert.True(t, svc.IsAvailable(boundary))
}

func TestIsAvailable_CompletedLessonStaysAvailable(t *testing.T) {
	env := newTestEnv(t)
	svc := env.registry.Availability

	// Completion wins even when the computed window would say otherwise.
	future := env.clock.Add(24 * time.Hour)
	progress := &courseModels.LessonProgress{IsCompleted: true, AvailableAt: &future}
	assert.True(t, svc.IsAvailable(progress))
	assert.Equal(t, LessonAvailable, svc.State(progress))

	noTimestamp := &courseModels.LessonProgress{IsCompleted: true}
	assert.True(t, svc.IsAvailable(noTimestamp))
}

func TestRefresh_UpdatesExistingRowOnly(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	_, lessons, _ := env.createCourse(t, 2)

	// No progress row: Refresh is a no-op, not a create.
	require.NoError(t, env.registry.Availability.Refresh(user.ID, &lessons[1]))
	var count int64
	env.db.Model(&courseModels.LessonProgress{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Zero(t, count)

	started := env.clock
	require.NoError(t, env.db.Create(&courseModels.LessonProgress{
		UserID: user.ID, LessonID: lessons[1].ID, CourseID: lessons[1].CourseID, StartedAt: &started,
	}).Error)
	completedAt := env.clock
	require.NoError(t, env.db.Create(&courseModels.LessonProgress{
		UserID: user.ID, LessonID: lessons[0].ID, CourseID: lessons[0].CourseID,
		IsCompleted: true, CompletedAt: &completedAt,
	}).Error)

	require.NoError(t, env.registry.Availability.Refresh(user.ID, &lessons[1]))

	var progress courseModels.LessonProgress
	require.NoError(t, env.db.Where("user_id = ? AND lesson_id = ?", user.ID, lessons[1].ID).First(&progress).Error)
	require.NotNil(t, progress.AvailableAt)
	assert.WithinDuration(t, completedAt, *progress.AvailableAt, 0)
}
