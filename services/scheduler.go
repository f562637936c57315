package services

import (
	"log"

	"github.com/Zazh/dpa-lms-sub000/config"

	"github.com/robfig/cron/v3"
)

// InitializeAttemptSweeper starts the periodic reconciliation of quiz
// attempts whose time window elapsed without a submit. Timeouts are
// evaluated lazily on read, so without the sweep an abandoned attempt would
// stay IN_PROGRESS in storage indefinitely.
func InitializeAttemptSweeper(quizzes *QuizService) *cron.Cron {
	log.Println("[QUIZ-SWEEP] Initializing quiz attempt sweeper...")

	c := cron.New()
	spec := config.AppConfig.AttemptSweepSpec
	if _, err := c.AddFunc(spec, func() {
		swept, err := quizzes.SweepExpiredAttempts()
		if err != nil {
			log.Printf("[QUIZ-SWEEP] Error sweeping expired attempts: %v", err)
			return
		}
		if swept > 0 {
			log.Printf("[QUIZ-SWEEP] Timed out %d idle attempts", swept)
		}
	}); err != nil {
		log.Printf("[QUIZ-SWEEP] Invalid sweep spec %q: %v", spec, err)
		return c
	}

	c.Start()
	log.Printf("[QUIZ-SWEEP] Quiz attempt sweeper started (%s)", spec)
	return c
}
