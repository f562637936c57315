package controllers

import (
	"errors"

	"github.com/Zazh/dpa-lms-sub000/database"
	"github.com/Zazh/dpa-lms-sub000/middleware"
	"github.com/Zazh/dpa-lms-sub000/models"
	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"
	"github.com/Zazh/dpa-lms-sub000/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// LessonWithState is a lesson enriched with the learner's progress and
// availability state.
type LessonWithState struct {
	courseModels.Lesson
	IsCompleted bool    `json:"is_completed"`
	State       string  `json:"state"`
	AvailableAt *string `json:"available_at"`
}

// GetCourseOutline returns the course's lessons in order with the learner's
// per-lesson availability state.
func GetCourseOutline(c *fiber.Ctx) error {
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

	// Check if user is enrolled
	var enrollment courseModels.CourseEnrollment
	if err := database.Database.Db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "User not enrolled in this course!", nil)
	}

	var modules []courseModels.Module
	database.Database.Db.Where("course_id = ? AND is_deleted = ?", courseID, false).Order("order_index asc").Find(&modules)

	type ModuleOutline struct {
		courseModels.Module
		Lessons []LessonWithState `json:"lessons"`
	}

	outline := make([]ModuleOutline, len(modules))
	for i, mod := range modules {
		outline[i] = ModuleOutline{Module: mod}

		var lessons []courseModels.Lesson
		database.Database.Db.Where("module_id = ? AND is_deleted = ? AND is_published = ?", mod.ID, false, true).
			Order("order_index asc").Find(&lessons)

		for j := range lessons {
			progress, err := Services.Progress.GetOrCreate(userID, &lessons[j])
			if err != nil {
				return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load lesson progress!", nil)
			}
			item := LessonWithState{
				Lesson:      lessons[j],
				IsCompleted: progress.IsCompleted,
				State:       Services.Availability.State(progress),
			}
			if progress.AvailableAt != nil {
				formatted := progress.AvailableAt.Format("2006-01-02T15:04:05Z07:00")
				item.AvailableAt = &formatted
			}
			outline[i].Lessons = append(outline[i].Lessons, item)
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course outline fetched successfully!", fiber.Map{
		"course":     course,
		"modules":    outline,
		"enrollment": enrollment,
	})
}

// MarkLessonComplete records a completion signal for VIDEO and TEXT lessons.
// Quiz and assignment lessons complete only through their own flows.
func MarkLessonComplete(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	lessonID := c.Locals("lessonID").(int)

	var lesson courseModels.Lesson
	if err := database.Database.Db.Where("id = ? AND is_deleted = ? AND is_published = ?", lessonID, false, true).First(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}

	if lesson.Kind == courseModels.LessonKindQuiz || lesson.Kind == courseModels.LessonKindAssignment {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "This lesson is completed through its quiz or assignment!", nil)
	}

	progress, err := Services.Progress.GetOrCreate(userID, &lesson)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load lesson progress!", nil)
	}
	if !Services.Availability.IsAvailable(progress) {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Lesson is not available yet!", nil)
	}

	reqData := new(struct {
		WatchedPc *int `json:"watched_pc"` // for VIDEO lessons
	})
	_ = c.BodyParser(reqData)

	data := map[string]interface{}{}
	if lesson.Kind == courseModels.LessonKindVideo {
		content, err := services.ResolveLessonContent(database.Database.Db, &lesson)
		if err == nil && content.Video != nil {
			watched := 100
			if reqData.WatchedPc != nil {
				watched = *reqData.WatchedPc
			}
			if watched < content.Video.WatchThresholdPc {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Watch threshold not reached!", fiber.Map{
					"required_pc": content.Video.WatchThresholdPc,
				})
			}
			data["watched_pc"] = watched
		}
	}

	if err := Services.Progress.MarkCompleted(userID, lesson.ID, data); err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to mark lesson as completed!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson marked as completed successfully!", nil)
}

// GetProgress returns the learner's cached course progress.
func GetProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)

	var enrollment courseModels.CourseEnrollment
	err := database.Database.Db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusForbidden, false, "User not enrolled in this course!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch progress!", nil)
	}

	var graduate courseModels.Graduate
	hasGraduate := database.Database.Db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&graduate).Error == nil

	response := fiber.Map{"enrollment": enrollment}
	if hasGraduate {
		response["graduate"] = graduate
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", response)
}
