package course

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Quiz attempt statuses
const (
	AttemptInProgress = "IN_PROGRESS"
	AttemptCompleted  = "COMPLETED"
	AttemptTimeout    = "TIMEOUT"
)

// Quiz is the side record for QUIZ lessons. A final quiz owns no questions
// of its own: its attempts sample questions from the other quizzes of the
// same course.
type Quiz struct {
	gorm.Model
	LessonID          uint    `json:"lesson_id" gorm:"uniqueIndex;not null"`
	CourseID          uint    `json:"course_id" gorm:"index;not null"`
	Title             string  `json:"title"`
	PassingScore      float64 `json:"passing_score" gorm:"default:70"`
	MaxAttempts       int     `json:"max_attempts" gorm:"default:0"`        // 0 = unlimited
	RetryDelayMinutes int     `json:"retry_delay_minutes" gorm:"default:0"` // delay between finished attempts
	TimeLimitMinutes  int     `json:"time_limit_minutes" gorm:"default:0"`  // 0 = no time limit
	ShuffleQuestions  bool    `json:"shuffle_questions" gorm:"default:false"`
	ShuffleAnswers    bool    `json:"shuffle_answers" gorm:"default:false"`
	IsFinal           bool    `json:"is_final" gorm:"default:false"`
	QuestionsPerQuiz  int     `json:"questions_per_quiz" gorm:"default:0"` // final exam: fixed count per source quiz, 0 = even split
	TotalQuestions    int     `json:"total_questions" gorm:"default:0"`    // final exam: target size, 0 = keep all sampled
	IsDeleted         bool    `gorm:"default:false"`
}

// TimeLimit returns the configured limit as a duration; zero means none.
func (q *Quiz) TimeLimit() time.Duration {
	return time.Duration(q.TimeLimitMinutes) * time.Minute
}

type QuizQuestion struct {
	gorm.Model
	QuizID     uint   `json:"quiz_id" gorm:"index;not null"`
	Text       string `json:"text" gorm:"type:text"`
	Points     int    `json:"points" gorm:"default:1"`
	OrderIndex int    `json:"order_index" gorm:"default:0"`
	IsDeleted  bool   `gorm:"default:false"`
}

type QuizAnswer struct {
	gorm.Model
	QuestionID uint   `json:"question_id" gorm:"index;not null"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct" gorm:"default:false"`
	OrderIndex int    `json:"order_index" gorm:"default:0"`
	IsDeleted  bool   `gorm:"default:false"`
}

// QuizAttempt is one timed assessment session. QuestionsOrder is frozen at
// creation and never mutated: scoring and review replay the same sequence.
type QuizAttempt struct {
	gorm.Model
	UserID          uint           `json:"user_id" gorm:"index;not null;uniqueIndex:idx_attempt_user_quiz_no"`
	QuizID          uint           `json:"quiz_id" gorm:"index;not null;uniqueIndex:idx_attempt_user_quiz_no"`
	AttemptNumber   int            `json:"attempt_number" gorm:"default:1;uniqueIndex:idx_attempt_user_quiz_no"`
	Status          string         `json:"status" gorm:"default:'IN_PROGRESS'"` // IN_PROGRESS, COMPLETED, TIMEOUT
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at"`
	ScorePercentage float64        `json:"score_percentage" gorm:"default:0"`
	QuestionsOrder  datatypes.JSON `json:"questions_order"` // frozen array of question IDs
}

// QuizResponse holds one answered question of an attempt. AnswersOrder is
// the frozen sequence of answer IDs as they were presented.
type QuizResponse struct {
	gorm.Model
	AttemptID       uint           `json:"attempt_id" gorm:"index;not null;uniqueIndex:idx_response_attempt_question"`
	QuestionID      uint           `json:"question_id" gorm:"not null;uniqueIndex:idx_response_attempt_question"`
	SelectedAnswers datatypes.JSON `json:"selected_answers"`
	AnswersOrder    datatypes.JSON `json:"answers_order"`
	IsCorrect       bool           `json:"is_correct" gorm:"default:false"`
	PointsEarned    int            `json:"points_earned" gorm:"default:0"`
}

// EncodeIDList marshals an ID sequence into a JSON column value.
func EncodeIDList(ids []uint) datatypes.JSON {
	b, _ := json.Marshal(ids)
	return datatypes.JSON(b)
}

// DecodeIDList unmarshals a JSON column value back into the ID sequence,
// preserving order.
func DecodeIDList(raw datatypes.JSON) []uint {
	var ids []uint
	if len(raw) == 0 {
		return ids
	}
	_ = json.Unmarshal(raw, &ids)
	return ids
}
