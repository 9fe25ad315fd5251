package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizium/quizium-backend/internal/middleware"
	"github.com/quizium/quizium-backend/internal/model"
	"github.com/quizium/quizium-backend/internal/response"
	"github.com/quizium/quizium-backend/internal/service"
	"github.com/quizium/quizium-backend/internal/validator"
)

// AttemptHandler handles quiz entry and the participant side of attempts.
type AttemptHandler struct {
	accessService  *service.AccessService
	attemptService *service.AttemptService
	quizService    *service.QuizService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(
	accessService *service.AccessService,
	attemptService *service.AttemptService,
	quizService *service.QuizService,
) *AttemptHandler {
	return &AttemptHandler{
		accessService:  accessService,
		attemptService: attemptService,
		quizService:    quizService,
	}
}

// JoinAsStudent godoc
// POST /api/v1/student/quizzes/:id/join
// Admits a logged-in student into a quiz, resuming an in-progress attempt
// when one exists.
func (h *AttemptHandler) JoinAsStudent(c *gin.Context) {
	claims := middleware.GetClaims(c)

	quizID, ok := parseQuizID(c)
	if !ok {
		return
	}

	result, err := h.accessService.JoinAsStudent(c.Request.Context(), quizID, claims.UserID)
	if err != nil {
		failJoin(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempt": result.Attempt,
		"quiz":    result.Payload,
		"resumed": result.Resumed,
	})
}

// JoinByKey godoc
// POST /api/v1/public/quizzes/join
// Admits an anonymous participant by access key. Returns an attempt-scoped
// token that authorizes only this attempt.
func (h *AttemptHandler) JoinByKey(c *gin.Context) {
	var req model.JoinByKeyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, token, err := h.accessService.JoinByKey(c.Request.Context(), &req)
	if err != nil {
		failJoin(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempt": result.Attempt,
		"quiz":    result.Payload,
		"resumed": result.Resumed,
		"token":   token,
	})
}

// GetPaper godoc
// GET /api/v1/attempts/:id/paper
// Re-delivers the sanitized quiz payload so a reconnecting participant can
// rebuild the question view.
func (h *AttemptHandler) GetPaper(c *gin.Context) {
	attempt, ok := h.ownedAttempt(c)
	if !ok {
		return
	}

	payload, err := h.quizService.GetQuizPayload(c.Request.Context(), attempt.QuizID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quiz": payload})
}

// GetState godoc
// GET /api/v1/attempts/:id/state
// Returns the live state of an attempt: remaining time, saved answers and
// the tab switch count. A past-deadline attempt is auto submitted first.
func (h *AttemptHandler) GetState(c *gin.Context) {
	attempt, ok := h.ownedAttempt(c)
	if !ok {
		return
	}

	state, err := h.attemptService.GetState(c.Request.Context(), attempt)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// SaveAnswer godoc
// POST /api/v1/attempts/:id/answers
// Autosaves a single answer without scoring it.
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	attempt, ok := h.ownedAttempt(c)
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.SaveAnswer(c.Request.Context(), attempt, &req); err != nil {
		if errors.Is(err, service.ErrAttemptFinished) {
			response.Fail(c, http.StatusConflict, response.ErrAttemptFinished)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// AddTabSwitch godoc
// POST /api/v1/attempts/:id/tab-switch
// Records that the participant left the quiz tab.
func (h *AttemptHandler) AddTabSwitch(c *gin.Context) {
	attempt, ok := h.ownedAttempt(c)
	if !ok {
		return
	}

	if err := h.attemptService.AddTabSwitch(c.Request.Context(), attempt.ID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Submit godoc
// POST /api/v1/attempts/:id/submit
// Scores and finalizes the attempt. Submitting twice is rejected.
func (h *AttemptHandler) Submit(c *gin.Context) {
	attempt, ok := h.ownedAttempt(c)
	if !ok {
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), attempt, &req)
	if err != nil {
		if errors.Is(err, service.ErrAttemptFinished) {
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetResult godoc
// GET /api/v1/attempts/:id/result
// Returns the scored result of a finished attempt.
func (h *AttemptHandler) GetResult(c *gin.Context) {
	attempt, ok := h.ownedAttempt(c)
	if !ok {
		return
	}

	result, err := h.attemptService.GetResult(c.Request.Context(), attempt)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFinished) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// ownedAttempt resolves the :id attempt and checks it belongs to the caller.
// Guest tokens are already scoped to a single attempt by the middleware, so
// only student tokens carry a user ID to match.
func (h *AttemptHandler) ownedAttempt(c *gin.Context) (*model.Attempt, bool) {
	claims := middleware.GetClaims(c)

	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	var studentID *int
	if claims.TokenType == service.TokenTypeStudent {
		studentID = &claims.UserID
	}

	attempt, err := h.attemptService.GetOwned(c.Request.Context(), attemptID, studentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotAttemptOwner):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return nil, false
	}
	return attempt, true
}

// failJoin maps admission gate errors to API responses.
func failJoin(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrQuizNotStarted):
		response.Fail(c, http.StatusConflict, response.ErrQuizNotStarted)
	case errors.Is(err, service.ErrQuizEnded):
		response.Fail(c, http.StatusConflict, response.ErrQuizEnded)
	case errors.Is(err, service.ErrQuizInactive):
		response.Fail(c, http.StatusConflict, response.ErrQuizInactive)
	case errors.Is(err, service.ErrAlreadyAttempted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyAttempted)
	case errors.Is(err, service.ErrInvalidAccessKey):
		response.Fail(c, http.StatusForbidden, response.ErrInvalidAccessKey)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrNotOnRoster):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrQuizNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
