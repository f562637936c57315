package courseRoutes

import (
	controllers "github.com/Zazh/dpa-lms-sub000/controllers/course"
	"github.com/Zazh/dpa-lms-sub000/middleware"
	validators "github.com/Zazh/dpa-lms-sub000/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminCourseRoutes sets up instructor and manager routes
func SetupAdminCourseRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin")

	// Assignment review (instructors)
	adminGroup.Post("/submission/:submission_id/review",
		middleware.JWTMiddleware,
		middleware.RequireRole("INSTRUCTOR", "ADMIN"),
		validators.IDParam("submission_id", "submissionID"),
		validators.ReviewSubmission(),
		controllers.ReviewSubmission)

	// Graduation review (managers)
	adminGroup.Get("/graduations/pending",
		middleware.JWTMiddleware,
		middleware.RequireRole("MANAGER", "ADMIN"),
		controllers.GetPendingGraduations)

	adminGroup.Post("/graduation/:graduate_id/approve",
		middleware.JWTMiddleware,
		middleware.RequireRole("MANAGER", "ADMIN"),
		validators.IDParam("graduate_id", "graduateID"),
		controllers.ApproveGraduation)

	adminGroup.Post("/graduation/:graduate_id/reject",
		middleware.JWTMiddleware,
		middleware.RequireRole("MANAGER", "ADMIN"),
		validators.IDParam("graduate_id", "graduateID"),
		controllers.RejectGraduation)
}
