package courseRoutes

import (
	controllers "github.com/Zazh/dpa-lms-sub000/controllers/course"
	"github.com/Zazh/dpa-lms-sub000/middleware"
	validators "github.com/Zazh/dpa-lms-sub000/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up all learner-facing course routes
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course")

	// Outline and progress
	courseGroup.Get("/:course_id/outline", middleware.JWTMiddleware, validators.IDParam("course_id", "courseID"), controllers.GetCourseOutline)
	courseGroup.Get("/:course_id/progress", middleware.JWTMiddleware, validators.IDParam("course_id", "courseID"), controllers.GetProgress)

	// Purchase (charges and joins the course group)
	courseGroup.Post("/:course_id/purchase", middleware.JWTMiddleware, validators.IDParam("course_id", "courseID"), controllers.PurchaseCourse)

	// Lesson completion (VIDEO and TEXT lessons)
	app.Post("/lesson/:lesson_id/complete", middleware.JWTMiddleware, validators.IDParam("lesson_id", "lessonID"), controllers.MarkLessonComplete)

	// Quiz attempts
	quizGroup := app.Group("/quiz")
	quizGroup.Post("/:quiz_id/start", middleware.JWTMiddleware, validators.IDParam("quiz_id", "quizID"), controllers.StartQuiz)
	quizGroup.Post("/attempt/:attempt_id/submit", middleware.JWTMiddleware, validators.IDParam("attempt_id", "attemptID"), controllers.SubmitQuiz)
	quizGroup.Get("/attempt/:attempt_id/review", middleware.JWTMiddleware, validators.IDParam("attempt_id", "attemptID"), controllers.GetAttemptReview)

	// Assignment submissions
	assignmentGroup := app.Group("/assignment")
	assignmentGroup.Post("/:assignment_id/submit", middleware.JWTMiddleware, validators.IDParam("assignment_id", "assignmentID"), validators.SubmitAssignment(), controllers.SubmitAssignment)
	assignmentGroup.Get("/:assignment_id/submissions", middleware.JWTMiddleware, validators.IDParam("assignment_id", "assignmentID"), controllers.GetSubmissions)

	// Group membership
	groupGroup := app.Group("/group")
	groupGroup.Post("/:group_id/join", middleware.JWTMiddleware, validators.IDParam("group_id", "groupID"), controllers.JoinGroup)
	groupGroup.Post("/:group_id/leave", middleware.JWTMiddleware, validators.IDParam("group_id", "groupID"), controllers.LeaveGroup)

	// Certificates
	app.Get("/user/certificates", middleware.JWTMiddleware, controllers.GetUserCertificates)
}
