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

// SubmitAssignment creates the next submission in the learner's chain.
func SubmitAssignment(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	assignmentID := c.Locals("assignmentID").(int)

	var assignment courseModels.Assignment
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", assignmentID, false).First(&assignment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Assignment not found!", nil)
	}

	// The assignment's lesson must be open for this learner.
	var lesson courseModels.Lesson
	if err := database.Database.Db.Where("id = ?", assignment.LessonID).First(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}
	progress, err := Services.Progress.GetOrCreate(userID, &lesson)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load lesson progress!", nil)
	}
	if !Services.Availability.IsAvailable(progress) {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Lesson is not available yet!", nil)
	}

	reqData, ok := c.Locals("validatedSubmission").(*struct {
		Text    string `json:"text"`
		FileURL string `json:"file_url"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	submission, err := Services.Assignments.Submit(userID, assignment.ID, reqData.Text, reqData.FileURL)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSubmissionInReview):
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "A submission is already in review!", nil)
		case errors.Is(err, services.ErrAssignmentPassed):
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Assignment is already passed!", nil)
		case errors.Is(err, services.ErrResubmissionNotAllowed):
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Assignment does not allow resubmission!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to submit assignment!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Assignment submitted successfully!", submission)
}

// ReviewSubmission records the instructor's verdict on a submission.
func ReviewSubmission(c *fiber.Ctx) error {
	reviewerID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	submissionID := c.Locals("submissionID").(int)

	reqData, ok := c.Locals("validatedReview").(*struct {
		Status   string   `json:"status"`
		Score    *float64 `json:"score"`
		Feedback string   `json:"feedback"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	submission, err := Services.Assignments.Review(reviewerID, uint(submissionID), reqData.Status, reqData.Score, reqData.Feedback)
	if err != nil {
		if errors.Is(err, services.ErrSubmissionNotInReview) {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Submission is not in review!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to review submission!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Submission reviewed successfully!", submission)
}

// GetSubmissions lists the learner's submission chain for an assignment.
func GetSubmissions(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	assignmentID := c.Locals("assignmentID").(int)

	submissions, err := Services.Assignments.Submissions(userID, uint(assignmentID))
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch submissions!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Submissions fetched successfully!", fiber.Map{
		"submissions": submissions,
		"total":       len(submissions),
	})
}
