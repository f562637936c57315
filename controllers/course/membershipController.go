package controllers

import (
	"github.com/Zazh/dpa-lms-sub000/database"
	"github.com/Zazh/dpa-lms-sub000/middleware"
	"github.com/Zazh/dpa-lms-sub000/models"
	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"
	"github.com/Zazh/dpa-lms-sub000/services"

	"github.com/gofiber/fiber/v2"
)

// JoinGroup adds the learner to a course group and provisions the
// enrollment and per-lesson progress rows.
func JoinGroup(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	groupID := c.Locals("groupID").(int)

	enrollment, err := Services.Enrollments.OnGroupJoin(userID, uint(groupID))
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to join group!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Joined group successfully!", enrollment)
}

// LeaveGroup removes the learner from a group and deactivates the
// enrollment.
func LeaveGroup(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	groupID := c.Locals("groupID").(int)

	if err := Services.Enrollments.OnGroupLeave(userID, uint(groupID)); err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to leave group!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Left group successfully!", nil)
}

// PurchaseCourse charges the course price and, on success, joins the
// learner to the course's group, which provisions the enrollment.
func PurchaseCourse(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(int)

	var course courseModels.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found or not published!", nil)
	}

	var group models.Group
	if err := database.Database.Db.Where("course_id = ? AND is_deleted = ? AND is_active = ?", courseID, false, true).
		Order("created_at desc").First(&group).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "No open group for this course!", nil)
	}

	reqData := new(struct {
		Token string `json:"token"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	result, err := Services.Payments.Charge(services.ChargeRequest{
		UserID:   userID,
		CourseID: course.ID,
		Amount:   course.Price,
		Token:    reqData.Token,
	})
	if err != nil || !result.Paid {
		return middleware.JsonResponse(c, fiber.StatusPaymentRequired, false, "Payment failed!", nil)
	}

	enrollment, err := Services.Enrollments.OnGroupJoin(userID, group.ID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Payment succeeded but enrollment failed!", fiber.Map{
			"payment_reference": result.Reference,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course purchased successfully!", fiber.Map{
		"enrollment":        enrollment,
		"payment_reference": result.Reference,
	})
}
