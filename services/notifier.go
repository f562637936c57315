package services

import (
	"fmt"

	"github.com/Zazh/dpa-lms-sub000/config"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Notifier delivers outbound notifications. The engine hands it a plain
// payload and does not care about the delivery format; failures are the
// task queue's problem.
type Notifier interface {
	Send(toEmail, toName, subject, htmlBody string) error
}

// EmailNotifier sends through SendGrid.
type EmailNotifier struct {
	apiKey     string
	sender     string
	senderName string
}

func NewEmailNotifier() *EmailNotifier {
	cfg := config.AppConfig
	return &EmailNotifier{apiKey: cfg.SendGridKey, sender: cfg.EmailSender, senderName: cfg.SenderName}
}

func (n *EmailNotifier) Send(toEmail, toName, subject, htmlBody string) error {
	from := mail.NewEmail(n.senderName, n.sender)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)

	client := sendgrid.NewSendClient(n.apiKey)
	resp, err := client.Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// emailTemplate wraps body content in the platform layout.
func emailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #00004D; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #00004D; line-height: 1.6; }
			.content h2 { color: #00004D; margin-top: 0; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #d7b56d; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>LMS PLATFORM</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; 2026 LMS Platform. All rights reserved.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

// courseCompletedBody is sent when the learner reaches 100% and the
// graduation record is created.
func courseCompletedBody(name, courseTitle string, finalScore float64) string {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Congratulations! You have completed <strong>%s</strong> with a final score of <strong>%.2f%%</strong>.</p>
		<div class="info-box">Your graduation is pending review. You will receive your certificate once it is approved.</div>
	`, name, courseTitle, finalScore)
	return emailTemplate("Course Completed", body)
}

// certificateIssuedBody is sent after graduation approval.
func certificateIssuedBody(name, courseTitle, certificateNumber string) string {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your graduation for <strong>%s</strong> has been approved.</p>
		<div class="info-box">Certificate number: <strong>%s</strong></div>
		<p>Your certificate document will be available in your profile shortly.</p>
	`, name, courseTitle, certificateNumber)
	return emailTemplate("Certificate Issued", body)
}

// graduationRejectedBody is sent after graduation rejection.
func graduationRejectedBody(name, courseTitle, reason string) string {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your graduation for <strong>%s</strong> was not approved.</p>
		<div class="info-box">%s</div>
	`, name, courseTitle, reason)
	return emailTemplate("Graduation Review Result", body)
}
