package courseValidator

import (
	"strconv"
	"strings"

	"github.com/Zazh/dpa-lms-sub000/middleware"

	"github.com/gofiber/fiber/v2"
)

// IDParam validates a positive integer path parameter and stores it in
// locals under localKey.
func IDParam(param, localKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.Atoi(c.Params(param))
		if err != nil || id < 1 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid "+param+"!", nil)
		}
		c.Locals(localKey, id)
		return c.Next()
	}
}

// SubmitAssignment validates the submission body: at least one of text or
// file is required.
func SubmitAssignment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Text    string `json:"text"`
			FileURL string `json:"file_url"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if strings.TrimSpace(reqData.Text) == "" && strings.TrimSpace(reqData.FileURL) == "" {
			errors["text"] = "Either text or a file is required!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedSubmission", reqData)
		return c.Next()
	}
}

// ReviewSubmission validates the instructor review body.
func ReviewSubmission() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Status   string   `json:"status"`
			Score    *float64 `json:"score"`
			Feedback string   `json:"feedback"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		switch reqData.Status {
		case "PASSED", "FAILED", "NEEDS_REVISION":
		default:
			errors["status"] = "Status must be PASSED, FAILED or NEEDS_REVISION!"
		}

		if reqData.Score != nil && (*reqData.Score < 0 || *reqData.Score > 100) {
			errors["score"] = "Score must be between 0 and 100!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedReview", reqData)
		return c.Next()
	}
}
