package controllers

import (
	"errors"

	"github.com/Zazh/dpa-lms-sub000/database"
	"github.com/Zazh/dpa-lms-sub000/middleware"
	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"
	"github.com/Zazh/dpa-lms-sub000/services"

	"github.com/gofiber/fiber/v2"
)

// ApproveGraduation transitions a pending graduation to GRADUATED and queues
// certificate generation. Manager only.
func ApproveGraduation(c *fiber.Ctx) error {
	managerID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	graduateID := c.Locals("graduateID").(int)

	graduate, err := Services.Graduation.Approve(uint(graduateID), managerID)
	if err != nil {
		if errors.Is(err, services.ErrGraduateNotPending) {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Graduation is not pending!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to approve graduation!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Graduation approved successfully!", graduate)
}

// RejectGraduation transitions a pending graduation to REJECTED, optionally
// issuing an attendance document. Manager only.
func RejectGraduation(c *fiber.Ctx) error {
	managerID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	graduateID := c.Locals("graduateID").(int)

	reqData := new(struct {
		Reason           string `json:"reason"`
		IssueAttendedDoc bool   `json:"issue_attended_doc"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	graduate, err := Services.Graduation.Reject(uint(graduateID), managerID, reqData.Reason, reqData.IssueAttendedDoc)
	if err != nil {
		if errors.Is(err, services.ErrGraduateNotPending) {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Graduation is not pending!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to reject graduation!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Graduation rejected!", graduate)
}

// GetPendingGraduations lists graduations awaiting review. Manager only.
func GetPendingGraduations(c *fiber.Ctx) error {
	var graduates []courseModels.Graduate
	if err := database.Database.Db.Where("status = ?", courseModels.GraduatePending).
		Order("created_at asc").Find(&graduates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch graduations!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Pending graduations fetched successfully!", fiber.Map{
		"graduates": graduates,
		"total":     len(graduates),
	})
}

// GetUserCertificates lists the learner's issued certificates.
func GetUserCertificates(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	type CertificateWithCourse struct {
		courseModels.Certificate
		CourseName string `json:"course_name"`
	}

	var certificates []courseModels.Certificate
	if err := database.Database.Db.Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("issued_at desc").Find(&certificates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificates!", nil)
	}

	result := make([]CertificateWithCourse, len(certificates))
	for i, cert := range certificates {
		var course courseModels.Course
		database.Database.Db.Where("id = ?", cert.CourseID).First(&course)
		result[i] = CertificateWithCourse{Certificate: cert, CourseName: course.Title}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully!", fiber.Map{
		"certificates": result,
		"total":        len(result),
	})
}
