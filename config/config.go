package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port   string
	JWTKey string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	SendGridKey string
	EmailSender string
	SenderName  string

	PdfServiceURL string // certificate render service
	PdfServiceKey string

	PaymentApiURL string
	PaymentApiKey string

	AttemptSweepSpec  string // cron spec for the idle quiz-attempt sweep
	TaskMaxRetries    int
	TaskRetryDelaySec int
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:   getEnv("PORT", "3000"),
		JWTKey: getEnv("JWT_SECRET_KEY", "defaultSecret"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "lms"),
		DBPort:     getEnv("DB_PORT", "5432"),

		SendGridKey: getEnv("SENDGRID_API_KEY", ""),
		EmailSender: getEnv("EMAIL_SENDER", "noreply@example.com"),
		SenderName:  getEnv("EMAIL_SENDER_NAME", "LMS Platform"),

		PdfServiceURL: getEnv("PDF_SERVICE_URL", "http://localhost:9090/render"),
		PdfServiceKey: getEnv("PDF_SERVICE_KEY", ""),

		PaymentApiURL: getEnv("PAYMENT_API_URL", "https://api.sandbox.credpay.io/v1/"),
		PaymentApiKey: getEnv("PAYMENT_API_KEY", ""),

		AttemptSweepSpec:  getEnv("ATTEMPT_SWEEP_SPEC", "*/15 * * * *"),
		TaskMaxRetries:    getEnvInt("TASK_MAX_RETRIES", 3),
		TaskRetryDelaySec: getEnvInt("TASK_RETRY_DELAY_SEC", 30),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.SendGridKey == "" {
		log.Println("Warning: SENDGRID_API_KEY is empty. Outbound email will fail.")
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
