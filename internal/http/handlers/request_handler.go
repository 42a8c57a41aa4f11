// Voice request HTTP handlers.
//
// This file exposes the request-flow endpoints:
//   - POST   /request/voice           (initial submission)
//   - POST   /request/voice/continue  (clarification follow-up)
//   - DELETE /request/last            (admin undo)
//
// Handlers are transport-thin: they pull the multipart form apart, call the
// orchestrator service, and translate Outcome values and service errors into
// the two JSON response shapes the mobile app expects.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yunseo-dev/go-care-backend/internal/extract"
	"github.com/yunseo-dev/go-care-backend/internal/services"
	"github.com/yunseo-dev/go-care-backend/internal/store"
)

// VoiceService defines the orchestration operations consumed by the HTTP
// layer. Implementations must honor the context for cancellation.
type VoiceService interface {
	// SubmitInitial runs a fresh voice submission through the slot-filling flow.
	SubmitInitial(ctx context.Context, requesterID string, audio []byte) (services.Outcome, error)
	// SubmitFollowUp merges one clarification turn into a pending submission.
	SubmitFollowUp(ctx context.Context, requesterID, pendingID string, audio []byte) (services.Outcome, error)
	// UndoLast deletes the most recently finalized request.
	UndoLast(ctx context.Context) (string, error)
}

// Handlers groups the request-flow endpoints.
type Handlers struct {
	svc VoiceService
}

// New constructs Handlers bound to the given service.
func New(svc VoiceService) *Handlers {
	return &Handlers{svc: svc}
}

// voiceResponse is the success shape for both submission endpoints.
type voiceResponse struct {
	Status            string   `json:"status"`
	RequestID         string   `json:"request_id,omitempty"`
	PendingRequestID  string   `json:"pending_request_id,omitempty"`
	MissingFields     []string `json:"missing_fields,omitempty"`
	ClarificationText string   `json:"clarification_prompt_text,omitempty"`
}

// statusResponse is the success shape for administrative endpoints.
type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// readAudio extracts the uploaded audio file from the multipart form.
// The returned bytes live only for this request.
func readAudio(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile("audio_file")
	if err != nil {
		return nil, fmt.Errorf("audio_file is required: %w", err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer func(f multipart.File) { _ = f.Close() }(f)

	audio, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read uploaded file: %w", err)
	}
	return audio, nil
}

// requesterID resolves the requester from the form, falling back to the
// user_id query parameter older app builds send.
func requesterID(c *gin.Context) string {
	if id := strings.TrimSpace(c.PostForm("requester_id")); id != "" {
		return id
	}
	return strings.TrimSpace(c.Query("user_id"))
}

// writeOutcome maps a service Outcome to the wire shape.
func writeOutcome(c *gin.Context, out services.Outcome) {
	if out.Finalized() {
		ok(c, http.StatusOK, voiceResponse{Status: "success", RequestID: out.RequestID})
		return
	}
	ok(c, http.StatusOK, voiceResponse{
		Status:            "incomplete",
		PendingRequestID:  out.PendingID,
		MissingFields:     out.Missing,
		ClarificationText: out.Clarification,
	})
}

// mapServiceError translates service errors to the HTTP taxonomy:
// input errors 400, unknown pending 404, state conflicts 409, provider
// failures 502 with the provider message embedded.
func mapServiceError(c *gin.Context, err error) {
	var pe *extract.ParseError
	switch {
	case errors.Is(err, services.ErrEmptyAudio), errors.Is(err, services.ErrNoSpeech):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, store.ErrPendingNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "pending request not found")
	case errors.Is(err, store.ErrNothingToDelete), errors.Is(err, store.ErrInconsistentCounter):
		fail(c, http.StatusConflict, ErrCodeInvalidState, err.Error())
	case errors.As(err, &pe):
		fail(c, http.StatusBadGateway, ErrCodeExtractionFailed, err.Error())
	default:
		fail(c, http.StatusBadGateway, ErrCodeUpstream, err.Error())
	}
}

// SubmitVoice godoc
// @ID          submitVoiceRequest
// @Summary     Submit a new voice request
// @Description Transcribes the uploaded audio, extracts task fields, and either
// @Description finalizes the request or asks a clarification question.
// @Tags        Requests
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       requester_id  formData  string  true  "Requesting user ID"
// @Param       audio_file    formData  file    true  "LINEAR16 16kHz mono WAV"
//
// @Success     200  {object}  handlers.voiceResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider failure"
// @Router      /request/voice [post]
func (h *Handlers) SubmitVoice(c *gin.Context) {
	rid := requesterID(c)
	if rid == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "requester_id is required")
		return
	}
	audio, err := readAudio(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	out, err := h.svc.SubmitInitial(c.Request.Context(), rid, audio)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	writeOutcome(c, out)
}

// ContinueVoice godoc
// @ID          continueVoiceRequest
// @Summary     Answer a clarification question
// @Description Merges a follow-up recording into the pending submission and
// @Description finalizes it once all required fields are present.
// @Tags        Requests
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       requester_id        formData  string  true  "Requesting user ID"
// @Param       pending_request_id  formData  string  true  "Pending request ID from a previous incomplete response"
// @Param       audio_file          formData  file    true  "LINEAR16 16kHz mono WAV"
//
// @Success     200  {object}  handlers.voiceResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Pending request not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider failure"
// @Router      /request/voice/continue [post]
func (h *Handlers) ContinueVoice(c *gin.Context) {
	rid := requesterID(c)
	if rid == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "requester_id is required")
		return
	}
	pendingID := strings.TrimSpace(c.PostForm("pending_request_id"))
	if pendingID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "pending_request_id is required")
		return
	}
	audio, err := readAudio(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	out, err := h.svc.SubmitFollowUp(c.Request.Context(), rid, pendingID, audio)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	writeOutcome(c, out)
}

// DeleteLastRequest godoc
// @ID          deleteLastRequest
// @Summary     Undo the most recent request
// @Description Deletes the latest finalized request and rolls the ID counter back.
// @Tags        Admin
// @Produce     json
//
// @Success     200  {object}  handlers.statusResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Nothing to delete / counter repaired"
// @Router      /request/last [delete]
func (h *Handlers) DeleteLastRequest(c *gin.Context) {
	id, err := h.svc.UndoLast(c.Request.Context())
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, statusResponse{
		Status:  "success",
		Message: fmt.Sprintf("request %s deleted and counter rolled back", id),
	})
}
