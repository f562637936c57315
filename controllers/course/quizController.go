package controllers

import (
	"errors"

	"github.com/Zazh/dpa-lms-sub000/database"
	"github.com/Zazh/dpa-lms-sub000/middleware"
	"github.com/Zazh/dpa-lms-sub000/models"
	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"
	"github.com/Zazh/dpa-lms-sub000/services"

	"github.com/gofiber/fiber/v2"
)

// StartQuiz opens (or resumes) a quiz attempt for the learner.
func StartQuiz(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	quizID := c.Locals("quizID").(int)

	var quiz courseModels.Quiz
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", quizID, false).First(&quiz).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Quiz not found!", nil)
	}

	// The quiz's lesson must be open for this learner.
	var lesson courseModels.Lesson
	if err := database.Database.Db.Where("id = ?", quiz.LessonID).First(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}
	progress, err := Services.Progress.GetOrCreate(userID, &lesson)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load lesson progress!", nil)
	}
	if !Services.Availability.IsAvailable(progress) {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Lesson is not available yet!", nil)
	}

	attempt, err := Services.Quizzes.Start(userID, quiz.ID)
	if err != nil {
		var refused *services.AttemptRefusedError
		if errors.As(err, &refused) {
			data := fiber.Map{"reason": refused.Reason}
			if refused.ResumeAt != nil {
				data["resume_at"] = refused.ResumeAt
			}
			return middleware.JsonResponse(c, fiber.StatusConflict, false, refused.Error(), data)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to start quiz attempt!", nil)
	}

	// Render the frozen question sequence without correctness flags.
	questions, err := renderAttemptQuestions(attempt)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to render quiz questions!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz attempt started!", fiber.Map{
		"attempt":   attempt,
		"questions": questions,
	})
}

// SubmitQuiz scores the learner's answers for an open attempt.
func SubmitQuiz(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	attemptID := c.Locals("attemptID").(int)

	reqData := new(struct {
		Answers map[uint][]uint `json:"answers"` // question ID -> selected answer IDs
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	attempt, err := Services.Quizzes.Submit(userID, uint(attemptID), reqData.Answers)
	if err != nil {
		if errors.Is(err, services.ErrAttemptFinished) {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Quiz attempt is already finished!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to submit quiz attempt!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz attempt submitted!", fiber.Map{
		"attempt": attempt,
		"status":  attempt.Status,
		"score":   attempt.ScorePercentage,
	})
}

// GetAttemptReview replays a finished attempt with correct answers, in the
// exact order it was presented.
func GetAttemptReview(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	attemptID := c.Locals("attemptID").(int)

	review, err := Services.Quizzes.Review(userID, uint(attemptID))
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Attempt review not available!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Attempt review fetched successfully!", fiber.Map{
		"questions": review,
	})
}

// renderAttemptQuestions builds the learner-facing view of an attempt from
// its frozen snapshots, hiding which answers are correct.
func renderAttemptQuestions(attempt *courseModels.QuizAttempt) ([]fiber.Map, error) {
	questionIDs := courseModels.DecodeIDList(attempt.QuestionsOrder)
	rendered := make([]fiber.Map, 0, len(questionIDs))

	for _, questionID := range questionIDs {
		var question courseModels.QuizQuestion
		if err := database.Database.Db.Where("id = ?", questionID).First(&question).Error; err != nil {
			return nil, err
		}

		var response courseModels.QuizResponse
		if err := database.Database.Db.Where("attempt_id = ? AND question_id = ?", attempt.ID, questionID).First(&response).Error; err != nil {
			return nil, err
		}

		answers := make([]fiber.Map, 0)
		for _, answerID := range courseModels.DecodeIDList(response.AnswersOrder) {
			var answer courseModels.QuizAnswer
			if err := database.Database.Db.Where("id = ?", answerID).First(&answer).Error; err != nil {
				return nil, err
			}
			answers = append(answers, fiber.Map{
				"id":   answer.ID,
				"text": answer.Text,
			})
		}

		rendered = append(rendered, fiber.Map{
			"id":      question.ID,
			"text":    question.Text,
			"points":  question.Points,
			"answers": answers,
		})
	}
	return rendered, nil
}
