package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/vidscribe/api/internal/model"
	"github.com/vidscribe/api/pkg/response"
)

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		fields := make(map[string]string)
		for _, e := range validationErrors {
			fields[e.Field()] = e.Tag()
		}
		return fields
	}
	return nil
}

// jobError maps service errors onto the error envelope
func jobError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, model.ErrNotReady):
		return response.NotReady(c, "Job not completed yet")
	default:
		return response.ServiceError(c, err.Error())
	}
}
