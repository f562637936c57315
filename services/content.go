package services

import (
	"fmt"

	courseModels "github.com/Zazh/dpa-lms-sub000/models/course"

	"gorm.io/gorm"
)

// ResolveLessonContent loads the lesson's typed payload once, instead of
// probing per-kind tables at every call site.
func ResolveLessonContent(db *gorm.DB, lesson *courseModels.Lesson) (courseModels.LessonContent, error) {
	content := courseModels.LessonContent{Kind: lesson.Kind}

	switch lesson.Kind {
	case courseModels.LessonKindVideo:
		var video courseModels.VideoLesson
		if err := db.Where("lesson_id = ? AND is_deleted = ?", lesson.ID, false).First(&video).Error; err != nil {
			return content, err
		}
		content.Video = &video
	case courseModels.LessonKindText:
		var text courseModels.TextLesson
		if err := db.Where("lesson_id = ? AND is_deleted = ?", lesson.ID, false).First(&text).Error; err != nil {
			return content, err
		}
		content.Text = &text
	case courseModels.LessonKindQuiz:
		var quiz courseModels.Quiz
		if err := db.Where("lesson_id = ? AND is_deleted = ?", lesson.ID, false).First(&quiz).Error; err != nil {
			return content, err
		}
		content.Quiz = &quiz
	case courseModels.LessonKindAssignment:
		var assignment courseModels.Assignment
		if err := db.Where("lesson_id = ? AND is_deleted = ?", lesson.ID, false).First(&assignment).Error; err != nil {
			return content, err
		}
		content.Assignment = &assignment
	default:
		return content, fmt.Errorf("unknown lesson kind %q", lesson.Kind)
	}
	return content, nil
}
