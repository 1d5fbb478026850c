package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/vidscribe/api/internal/model"
	"github.com/vidscribe/api/internal/service"
	"github.com/vidscribe/api/pkg/response"
)

type ChatHandler struct {
	service   *service.ChatService
	validator *validator.Validate
}

func NewChatHandler(svc *service.ChatService, v *validator.Validate) *ChatHandler {
	return &ChatHandler{
		service:   svc,
		validator: v,
	}
}

// Ask handles POST /api/chat
// @Summary      Ask a question about a transcript
// @Description  Answers from the finished transcript only; provider failures come back as an "Error: ..." answer
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request body model.ChatRequest true "Chat request"
// @Success      200 {object} model.ChatResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Router       /api/chat [post]
func (h *ChatHandler) Ask(c *fiber.Ctx) error {
	var req model.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	answer, err := h.service.Ask(c.Context(), req.JobID, req.Question)
	if err != nil {
		return jobError(c, err)
	}

	return response.OK(c, model.ChatResponse{Answer: answer})
}
