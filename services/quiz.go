package services

import (
	"errors"
	"math/rand"
	"time"

	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"

	"gorm.io/gorm"
)

// QuizService runs the timed, scored attempt protocol: gated starts, frozen
// question/answer ordering, set-equality scoring and lazy timeouts. A final
// quiz samples its questions from the other quizzes of the same course.
type QuizService struct {
	db       *gorm.DB
	progress *ProgressService
	now      func() time.Time
	rng      *rand.Rand
}

func NewQuizService(db *gorm.DB, progress *ProgressService) *QuizService {
	return &QuizService{
		db:       db,
		progress: progress,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CanAttempt checks the start gate. It returns nil when a new attempt is
// allowed and an *AttemptRefusedError naming the reason otherwise; the
// retry-delay refusal carries the exact instant access resumes.
func (s *QuizService) CanAttempt(userID uint, quiz *courseModels.Quiz) error {
	var passed int64
	s.db.Model(&courseModels.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ? AND status = ? AND score_percentage >= ?",
			userID, quiz.ID, courseModels.AttemptCompleted, quiz.PassingScore).
		Count(&passed)
	if passed > 0 {
		return &AttemptRefusedError{Reason: RefusalAlreadyPassed}
	}

	if quiz.MaxAttempts > 0 {
		var attempts int64
		s.db.Model(&courseModels.QuizAttempt{}).
			Where("user_id = ? AND quiz_id = ?", userID, quiz.ID).
			Count(&attempts)
		if attempts >= int64(quiz.MaxAttempts) {
			return &AttemptRefusedError{Reason: RefusalAttemptLimit}
		}
	}

	if quiz.RetryDelayMinutes > 0 {
		var last courseModels.QuizAttempt
		err := s.db.
			Where("user_id = ? AND quiz_id = ? AND status IN ?",
				userID, quiz.ID, []string{courseModels.AttemptCompleted, courseModels.AttemptTimeout}).
			Order("completed_at desc").
			First(&last).Error
		if err == nil && last.CompletedAt != nil {
			resumeAt := last.CompletedAt.Add(time.Duration(quiz.RetryDelayMinutes) * time.Minute)
			if s.now().Before(resumeAt) {
				return &AttemptRefusedError{Reason: RefusalRetryDelay, ResumeAt: &resumeAt}
			}
		}
	}
	return nil
}

// Start opens a new attempt, freezing the question order and the per-question
// answer order so that scoring and review replay exactly what was presented.
// An open unexpired attempt is resumed instead; an open expired one is first
// reconciled as a timeout.
func (s *QuizService) Start(userID, quizID uint) (*courseModels.QuizAttempt, error) {
	var quiz courseModels.Quiz
	if err := s.db.Where("id = ? AND is_deleted = ?", quizID, false).First(&quiz).Error; err != nil {
		return nil, err
	}

	var open courseModels.QuizAttempt
	err := s.db.Where("user_id = ? AND quiz_id = ? AND status = ?", userID, quizID, courseModels.AttemptInProgress).
		First(&open).Error
	if err == nil {
		if !s.IsTimeExpired(&open, &quiz) {
			return &open, nil
		}
		if err := s.finalizeTimeout(&open); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.CanAttempt(userID, &quiz); err != nil {
		return nil, err
	}

	questionIDs, err := s.buildQuestionOrder(&quiz)
	if err != nil {
		return nil, err
	}

	var attemptCount int64
	s.db.Model(&courseModels.QuizAttempt{}).Where("user_id = ? AND quiz_id = ?", userID, quizID).Count(&attemptCount)

	attempt := courseModels.QuizAttempt{
		UserID:         userID,
		QuizID:         quizID,
		AttemptNumber:  int(attemptCount) + 1,
		Status:         courseModels.AttemptInProgress,
		StartedAt:      s.now(),
		QuestionsOrder: courseModels.EncodeIDList(questionIDs),
	}
	if err := s.db.Create(&attempt).Error; err != nil {
		return nil, err
	}

	// One response skeleton per question, created up front so the answer
	// order shown to the learner is the one scoring and review will replay.
	for _, questionID := range questionIDs {
		answerIDs, err := s.buildAnswerOrder(&quiz, questionID)
		if err != nil {
			return nil, err
		}
		response := courseModels.QuizResponse{
			AttemptID:    attempt.ID,
			QuestionID:   questionID,
			AnswersOrder: courseModels.EncodeIDList(answerIDs),
		}
		if err := s.db.Create(&response).Error; err != nil {
			return nil, err
		}
	}

	return &attempt, nil
}

// IsTimeExpired reports whether the attempt's time window has elapsed. A
// quiz without a time limit never expires.
func (s *QuizService) IsTimeExpired(attempt *courseModels.QuizAttempt, quiz *courseModels.Quiz) bool {
	if quiz.TimeLimitMinutes <= 0 {
		return false
	}
	return s.now().After(attempt.StartedAt.Add(quiz.TimeLimit()))
}

// Submit scores the attempt from the submitted answers, keyed by question
// ID. The time check precedes scoring: a submission after the window forces
// a timeout with score 0 regardless of the payload. A passing score marks
// the quiz's lesson completed.
func (s *QuizService) Submit(userID, attemptID uint, answers map[uint][]uint) (*courseModels.QuizAttempt, error) {
	var attempt courseModels.QuizAttempt
	if err := s.db.Where("id = ? AND user_id = ?", attemptID, userID).First(&attempt).Error; err != nil {
		return nil, err
	}
	if attempt.Status != courseModels.AttemptInProgress {
		return nil, ErrAttemptFinished
	}

	var quiz courseModels.Quiz
	if err := s.db.Where("id = ?", attempt.QuizID).First(&quiz).Error; err != nil {
		return nil, err
	}

	if s.IsTimeExpired(&attempt, &quiz) {
		if err := s.finalizeTimeout(&attempt); err != nil {
			return nil, err
		}
		return &attempt, nil
	}

	questionIDs := courseModels.DecodeIDList(attempt.QuestionsOrder)
	totalPoints := 0
	earnedPoints := 0

	for _, questionID := range questionIDs {
		var question courseModels.QuizQuestion
		if err := s.db.Where("id = ?", questionID).First(&question).Error; err != nil {
			return nil, err
		}
		totalPoints += question.Points

		var correct []courseModels.QuizAnswer
		s.db.Where("question_id = ? AND is_correct = ? AND is_deleted = ?", questionID, true, false).Find(&correct)
		correctIDs := make(map[uint]bool, len(correct))
		for _, a := range correct {
			correctIDs[a.ID] = true
		}

		selected := answers[questionID]
		isCorrect := setEqual(selected, correctIDs)
		points := 0
		if isCorrect {
			points = question.Points
			earnedPoints += points
		}

		if err := s.db.Model(&courseModels.QuizResponse{}).
			Where("attempt_id = ? AND question_id = ?", attempt.ID, questionID).
			Updates(map[string]interface{}{
				"selected_answers": courseModels.EncodeIDList(selected),
				"is_correct":       isCorrect,
				"points_earned":    points,
			}).Error; err != nil {
			return nil, err
		}
	}

	score := float64(0)
	if totalPoints > 0 {
		score = round2(float64(earnedPoints) / float64(totalPoints) * 100)
	}

	now := s.now()
	attempt.Status = courseModels.AttemptCompleted
	attempt.CompletedAt = &now
	attempt.ScorePercentage = score
	if err := s.db.Save(&attempt).Error; err != nil {
		return nil, err
	}

	if score >= quiz.PassingScore {
		if err := s.progress.MarkCompleted(userID, quiz.LessonID, map[string]interface{}{
			"quiz_score":     score,
			"attempt_number": attempt.AttemptNumber,
		}); err != nil {
			return nil, err
		}
	}

	return &attempt, nil
}

// ReviewQuestion is one replayed question of a finished attempt, in the
// exact order it was presented.
type ReviewQuestion struct {
	QuestionID   uint           `json:"question_id"`
	Text         string         `json:"text"`
	Points       int            `json:"points"`
	Answers      []ReviewAnswer `json:"answers"`
	SelectedIDs  []uint         `json:"selected_ids"`
	IsCorrect    bool           `json:"is_correct"`
	PointsEarned int            `json:"points_earned"`
}

type ReviewAnswer struct {
	AnswerID  uint   `json:"answer_id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Review replays a finished attempt from the frozen snapshots. Two calls
// produce identical question and answer ordering.
func (s *QuizService) Review(userID, attemptID uint) ([]ReviewQuestion, error) {
	var attempt courseModels.QuizAttempt
	if err := s.db.Where("id = ? AND user_id = ?", attemptID, userID).First(&attempt).Error; err != nil {
		return nil, err
	}
	if attempt.Status == courseModels.AttemptInProgress {
		return nil, errors.New("attempt is still in progress")
	}

	questionIDs := courseModels.DecodeIDList(attempt.QuestionsOrder)
	review := make([]ReviewQuestion, 0, len(questionIDs))

	for _, questionID := range questionIDs {
		var question courseModels.QuizQuestion
		if err := s.db.Where("id = ?", questionID).First(&question).Error; err != nil {
			return nil, err
		}

		var response courseModels.QuizResponse
		if err := s.db.Where("attempt_id = ? AND question_id = ?", attempt.ID, questionID).First(&response).Error; err != nil {
			return nil, err
		}

		item := ReviewQuestion{
			QuestionID:   questionID,
			Text:         question.Text,
			Points:       question.Points,
			SelectedIDs:  courseModels.DecodeIDList(response.SelectedAnswers),
			IsCorrect:    response.IsCorrect,
			PointsEarned: response.PointsEarned,
		}

		for _, answerID := range courseModels.DecodeIDList(response.AnswersOrder) {
			var answer courseModels.QuizAnswer
			if err := s.db.Where("id = ?", answerID).First(&answer).Error; err != nil {
				return nil, err
			}
			item.Answers = append(item.Answers, ReviewAnswer{
				AnswerID:  answer.ID,
				Text:      answer.Text,
				IsCorrect: answer.IsCorrect,
			})
		}
		review = append(review, item)
	}
	return review, nil
}

// SweepExpiredAttempts reconciles attempts whose time window elapsed without
// any further client interaction. Timeouts are otherwise evaluated lazily on
// read or submit; the sweep keeps long-idle attempts from staying open
// forever.
func (s *QuizService) SweepExpiredAttempts() (int, error) {
	var attempts []courseModels.QuizAttempt
	if err := s.db.Where("status = ?", courseModels.AttemptInProgress).Find(&attempts).Error; err != nil {
		return 0, err
	}

	swept := 0
	for i := range attempts {
		attempt := &attempts[i]
		var quiz courseModels.Quiz
		if err := s.db.Where("id = ?", attempt.QuizID).First(&quiz).Error; err != nil {
			continue
		}
		if !s.IsTimeExpired(attempt, &quiz) {
			continue
		}
		if err := s.finalizeTimeout(attempt); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}

// finalizeTimeout closes an attempt as a timeout with score 0.
func (s *QuizService) finalizeTimeout(attempt *courseModels.QuizAttempt) error {
	now := s.now()
	attempt.Status = courseModels.AttemptTimeout
	attempt.CompletedAt = &now
	attempt.ScorePercentage = 0
	return s.db.Save(attempt).Error
}

// buildQuestionOrder freezes the question sequence for a new attempt. For an
// ordinary quiz that is its own questions, shuffled when configured. A final
// quiz samples from every non-final quiz of the course instead.
func (s *QuizService) buildQuestionOrder(quiz *courseModels.Quiz) ([]uint, error) {
	if quiz.IsFinal {
		return s.buildFinalExamOrder(quiz)
	}

	var questions []courseModels.QuizQuestion
	if err := s.db.Where("quiz_id = ? AND is_deleted = ?", quiz.ID, false).
		Order("order_index asc").Find(&questions).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	if quiz.ShuffleQuestions {
		s.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}
	return ids, nil
}

// buildFinalExamOrder samples questions from all non-final quizzes of the
// course: a fixed count per source quiz when QuestionsPerQuiz is set,
// otherwise an even split of TotalQuestions with the remainder going to the
// earliest quizzes. Sampling is without replacement within each source; the
// combined set is globally shuffled, then trimmed or topped up to the
// configured total.
func (s *QuizService) buildFinalExamOrder(quiz *courseModels.Quiz) ([]uint, error) {
	var sources []courseModels.Quiz
	if err := s.db.Where("course_id = ? AND is_final = ? AND is_deleted = ?", quiz.CourseID, false, false).
		Order("id asc").Find(&sources).Error; err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return []uint{}, nil
	}

	// Per-source quota.
	quotas := make([]int, len(sources))
	switch {
	case quiz.QuestionsPerQuiz > 0:
		for i := range quotas {
			quotas[i] = quiz.QuestionsPerQuiz
		}
	case quiz.TotalQuestions > 0:
		base := quiz.TotalQuestions / len(sources)
		remainder := quiz.TotalQuestions % len(sources)
		for i := range quotas {
			quotas[i] = base
			if i < remainder {
				quotas[i]++
			}
		}
	default:
		for i := range quotas {
			quotas[i] = -1 // take everything
		}
	}

	var picked []uint
	var leftover []uint
	for i, source := range sources {
		var questions []courseModels.QuizQuestion
		if err := s.db.Where("quiz_id = ? AND is_deleted = ?", source.ID, false).Find(&questions).Error; err != nil {
			return nil, err
		}
		ids := make([]uint, len(questions))
		for j, q := range questions {
			ids[j] = q.ID
		}
		s.rng.Shuffle(len(ids), func(a, b int) { ids[a], ids[b] = ids[b], ids[a] })

		quota := quotas[i]
		if quota < 0 || quota > len(ids) {
			quota = len(ids)
		}
		picked = append(picked, ids[:quota]...)
		leftover = append(leftover, ids[quota:]...)
	}

	s.rng.Shuffle(len(picked), func(a, b int) { picked[a], picked[b] = picked[b], picked[a] })

	if quiz.TotalQuestions > 0 {
		if len(picked) > quiz.TotalQuestions {
			picked = picked[:quiz.TotalQuestions]
		} else if len(picked) < quiz.TotalQuestions && len(leftover) > 0 {
			// Top up from questions the quotas skipped.
			s.rng.Shuffle(len(leftover), func(a, b int) { leftover[a], leftover[b] = leftover[b], leftover[a] })
			need := quiz.TotalQuestions - len(picked)
			if need > len(leftover) {
				need = len(leftover)
			}
			picked = append(picked, leftover[:need]...)
		}
	}
	return picked, nil
}

// buildAnswerOrder freezes the answer sequence of one question.
func (s *QuizService) buildAnswerOrder(quiz *courseModels.Quiz, questionID uint) ([]uint, error) {
	var answers []courseModels.QuizAnswer
	if err := s.db.Where("question_id = ? AND is_deleted = ?", questionID, false).
		Order("order_index asc").Find(&answers).Error; err != nil {
		return nil, err
	}
	ids := make([]uint, len(answers))
	for i, a := range answers {
		ids[i] = a.ID
	}
	if quiz.ShuffleAnswers {
		s.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}
	return ids, nil
}

// setEqual requires an exact match between the selected IDs and the correct
// set: multi-select questions accept no supersets and no subsets.
func setEqual(selected []uint, correct map[uint]bool) bool {
	if len(correct) == 0 {
		return len(selected) == 0
	}
	seen := make(map[uint]bool, len(selected))
	for _, id := range selected {
		if !correct[id] {
			return false
		}
		seen[id] = true
	}
	return len(seen) == len(correct)
}
