package services

import (
	"fmt"
	"time"

	"github.com/Zazh/dpa-lms-sub000/config"

	"github.com/go-resty/resty/v2"
)

// Certificate document kinds
const (
	DocumentCertificate = "CERTIFICATE"
	DocumentAttended    = "ATTENDED"
)

// CertificatePayload is the plain data handed to the render service. It
// snapshots learner identity and results so the document stays correct even
// if the live records change later.
type CertificatePayload struct {
	Kind              string    `json:"kind"` // CERTIFICATE or ATTENDED
	LearnerName       string    `json:"learner_name"`
	LearnerEmail      string    `json:"learner_email"`
	CourseTitle       string    `json:"course_title"`
	FinalScore        float64   `json:"final_score"`
	QuizAverage       float64   `json:"quiz_average"`
	CertificateNumber string    `json:"certificate_number,omitempty"`
	IssuedAt          time.Time `json:"issued_at"`
}

// CertificateRenderer turns a payload into a stored PDF and returns its URL.
type CertificateRenderer interface {
	Render(payload CertificatePayload) (string, error)
}

// PdfServiceRenderer calls the external render service over HTTP.
type PdfServiceRenderer struct {
	client  *resty.Client
	baseURL string
}

func NewPdfServiceRenderer() *PdfServiceRenderer {
	cfg := config.AppConfig
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	if cfg.PdfServiceKey != "" {
		client.SetAuthToken(cfg.PdfServiceKey)
	}
	return &PdfServiceRenderer{client: client, baseURL: cfg.PdfServiceURL}
}

func (r *PdfServiceRenderer) Render(payload CertificatePayload) (string, error) {
	var result struct {
		URL     string `json:"url"`
		Message string `json:"message"`
	}

	resp, err := r.client.R().
		SetBody(payload).
		SetResult(&result).
		Post(r.baseURL)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("pdf service responded %d: %s", resp.StatusCode(), resp.String())
	}
	if result.URL == "" {
		return "", fmt.Errorf("pdf service returned no document url")
	}
	return result.URL, nil
}
