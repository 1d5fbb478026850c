package handler

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/vidscribe/api/internal/model"
	"github.com/vidscribe/api/internal/service"
	"github.com/vidscribe/api/pkg/response"
)

type JobHandler struct {
	service        *service.JobService
	validator      *validator.Validate
	maxUploadBytes int64
}

func NewJobHandler(svc *service.JobService, v *validator.Validate, maxUploadBytes int64) *JobHandler {
	return &JobHandler{
		service:        svc,
		validator:      v,
		maxUploadBytes: maxUploadBytes,
	}
}

// Process handles POST /api/process
// @Summary      Transcribe a video by URL
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Param        request body model.ProcessRequest true "Video URL"
// @Success      202 {object} model.JobCreatedResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/process [post]
func (h *JobHandler) Process(c *fiber.Ctx) error {
	var req model.ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	jobID, err := h.service.CreateURLJob(c.Context(), req.URL)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, model.JobCreatedResponse{JobID: jobID})
}

// Upload handles POST /api/upload
// @Summary      Transcribe an uploaded video
// @Tags         Jobs
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Video or audio file"
// @Success      202 {object} model.JobCreatedResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/upload [post]
func (h *JobHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size == 0 {
		return response.ValidationError(c, "File is empty", nil)
	}

	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		return response.ValidationError(c, fmt.Sprintf("File size exceeds %dMB limit", h.maxUploadBytes/(1024*1024)), map[string]interface{}{
			"maxSize":  h.maxUploadBytes,
			"fileSize": file.Size,
		})
	}

	jobID, err := h.service.CreateUploadJob(c.Context(), file.Filename, func(dst string) error {
		return c.SaveFile(file, dst)
	})
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, model.JobCreatedResponse{JobID: jobID})
}

// Status handles GET /api/status/:jobId
// @Summary      Get job status
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.JobStatusResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/status/{jobId} [get]
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Status(c.Context(), jobID)
	if err != nil {
		return jobError(c, err)
	}

	return response.OK(c, result)
}

// Result handles GET /api/result/:jobId
// @Summary      Get job transcript
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.JobResultResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/result/{jobId} [get]
func (h *JobHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	transcript, err := h.service.Result(c.Context(), jobID)
	if err != nil {
		return jobError(c, err)
	}

	return response.OK(c, model.JobResultResponse{Transcript: transcript})
}

// List handles GET /api/jobs
// @Summary      List jobs
// @Tags         Jobs
// @Produce      json
// @Success      200 {array} model.JobSummary
// @Router       /api/jobs [get]
func (h *JobHandler) List(c *fiber.Ctx) error {
	jobs, err := h.service.List(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, jobs)
}

// Delete handles DELETE /api/job/:jobId
// @Summary      Delete a job
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.JobDeletedResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/job/{jobId} [delete]
func (h *JobHandler) Delete(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	if err := h.service.Delete(c.Context(), jobID); err != nil {
		return jobError(c, err)
	}

	return response.OK(c, model.JobDeletedResponse{Status: "deleted"})
}
