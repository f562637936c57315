package services

import (
	"testing"

	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createAssignment attaches an assignment to the given lesson.
func (env *testEnv) createAssignment(t *testing.T, lesson *courseModels.Lesson, allowResubmission bool) *courseModels.Assignment {
	t.Helper()
	assignment := courseModels.Assignment{
		LessonID:          lesson.ID,
		CourseID:          lesson.CourseID,
		Title:             lesson.Title + " Assignment",
		AllowResubmission: allowResubmission,
	}
	require.NoError(t, env.db.Create(&assignment).Error)
	if !allowResubmission {
		// The column defaults to true, which swallows a zero value on insert.
		require.NoError(t, env.db.Model(&assignment).Update("allow_resubmission", false).Error)
	}
	return &assignment
}

func TestAssignmentSubmit_FirstSubmission(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	_, lessons, group := env.createCourse(t, 1)
	env.enroll(t, user.ID, group.ID)
	assignment := env.createAssignment(t, &lessons[0], true)

	submission, err := env.registry.Assignments.Submit(user.ID, assignment.ID, "my essay", "")
	require.NoError(t, err)
	assert.Equal(t, 1, submission.SubmissionNumber)
	assert.Equal(t, courseModels.SubmissionInReview, submission.Status)
	assert.WithinDuration(t, env.clock, submission.SubmittedAt, 0)
}

func TestAssignmentSubmit_RefusedWhileInReview(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	_, lessons, group := env.createCourse(t, 1)
	env.enroll(t, user.ID, group.ID)
	assignment := env.createAssignment(t, &lessons[0], true)

	_, err := env.registry.Assignments.Submit(user.ID, assignment.ID, "first", "")
	require.NoError(t, err)

	_, err = env.registry.Assignments.Submit(user.ID, assignment.ID, "second", "")
	assert.ErrorIs(t, err, ErrSubmissionInReview)
}

func TestAssignmentReview_NeedsRevisionAllowsResubmit(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	instructor := env.createUser(t, "teach", "INSTRUCTOR")
	_, lessons, group := env.createCourse(t, 1)
	env.enroll(t, user.ID, group.ID)
	assignment := env.createAssignment(t, &lessons[0], true)

	first, err := env.registry.Assignments.Submit(user.ID, assignment.ID, "draft", "")
	require.NoError(t, err)

	reviewed, err := env.registry.Assignments.Review(instructor.ID, first.ID, courseModels.SubmissionNeedsRevision, nil, "needs sources")
	require.NoError(t, err)
	assert.Equal(t, courseModels.SubmissionNeedsRevision, reviewed.Status)
	assert.Equal(t, "needs sources", reviewed.Feedback)
	require.NotNil(t, reviewed.ReviewerID)
	assert.Equal(t, instructor.ID, *reviewed.ReviewerID)
	require.NotNil(t, reviewed.ReviewedAt)

	second, err := env.registry.Assignments.Submit(user.ID, assignment.ID, "revised", "")
	require.NoError(t, err)
	assert.Equal(t, 2, second.SubmissionNumber)
}

func TestAssignmentSubmit_ResubmissionDisabled(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	instructor := env.createUser(t, "teach", "INSTRUCTOR")
	_, lessons, group := env.createCourse(t, 1)
	env.enroll(t, user.ID, group.ID)
	assignment := env.createAssignment(t, &lessons[0], false)

	first, err := env.registry.Assignments.Submit(user.ID, assignment.ID, "only shot", "")
	require.NoError(t, err)

	_, err = env.registry.Assignments.Review(instructor.ID, first.ID, courseModels.SubmissionFailed, nil, "off topic")
	require.NoError(t, err)

	_, err = env.registry.Assignments.Submit(user.ID, assignment.ID, "again", "")
	assert.ErrorIs(t, err, ErrResubmissionNotAllowed)
}

func TestAssignmentReview_PassMarksLessonCompleted(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	instructor := env.createUser(t, "teach", "INSTRUCTOR")
	_, lessons, group := env.createCourse(t, 2)
	env.enroll(t, user.ID, group.ID)
	assignment := env.createAssignment(t, &lessons[0], true)

	submission, err := env.registry.Assignments.Submit(user.ID, assignment.ID, "", "https://files.example.com/essay.pdf")
	require.NoError(t, err)

	score := 92.5
	_, err = env.registry.Assignments.Review(instructor.ID, submission.ID, courseModels.SubmissionPassed, &score, "well done")
	require.NoError(t, err)

	var progress courseModels.LessonProgress
	require.NoError(t, env.db.Where("user_id = ? AND lesson_id = ?", user.ID, lessons[0].ID).First(&progress).Error)
	require.True(t, progress.IsCompleted)
	assert.Equal(t, 92.5, progress.CompletionData["assignment_score"])

	// Passed assignments accept no further submissions.
	_, err = env.registry.Assignments.Submit(user.ID, assignment.ID, "extra", "")
	assert.ErrorIs(t, err, ErrAssignmentPassed)
}

func TestAssignmentReview_OnlyInReviewSubmissions(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	instructor := env.createUser(t, "teach", "INSTRUCTOR")
	_, lessons, group := env.createCourse(t, 1)
	env.enroll(t, user.ID, group.ID)
	assignment := env.createAssignment(t, &lessons[0], true)

	submission, err := env.registry.Assignments.Submit(user.ID, assignment.ID, "draft", "")
	require.NoError(t, err)

	_, err = env.registry.Assignments.Review(instructor.ID, submission.ID, courseModels.SubmissionFailed, nil, "")
	require.NoError(t, err)

	// Second verdict on the same submission is refused.
	_, err = env.registry.Assignments.Review(instructor.ID, submission.ID, courseModels.SubmissionPassed, nil, "")
	assert.ErrorIs(t, err, ErrSubmissionNotInReview)

	// Unknown statuses are refused outright.
	_, err = env.registry.Assignments.Review(instructor.ID, submission.ID, "APPROVED", nil, "")
	assert.Error(t, err)
}

func TestAssignmentSubmissions_ChainInOrder(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "STUDENT")
	instructor := env.createUser(t, "teach", "INSTRUCTOR")
	_, lessons, group := env.createCourse(t, 1)
	env.enroll(t, user.ID, group.ID)
	assignment := env.createAssignment(t, &lessons[0], true)

	for i := 0; i < 3; i++ {
		submission, err := env.registry.Assignments.Submit(user.ID, assignment.ID, "attempt", "")
		require.NoError(t, err)
		_, err = env.registry.Assignments.Review(instructor.ID, submission.ID, courseModels.SubmissionNeedsRevision, nil, "again")
		require.NoError(t, err)
	}

	chain, err := env.registry.Assignments.Submissions(user.ID, assignment.ID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	for i, submission := range chain {
		assert.Equal(t, i+1, submission.SubmissionNumber)
	}
}
