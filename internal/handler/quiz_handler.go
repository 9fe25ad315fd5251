package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizium/quizium-backend/internal/lifecycle"
	"github.com/quizium/quizium-backend/internal/middleware"
	"github.com/quizium/quizium-backend/internal/model"
	"github.com/quizium/quizium-backend/internal/response"
	"github.com/quizium/quizium-backend/internal/service"
	"github.com/quizium/quizium-backend/internal/validator"
)

// QuizHandler handles teacher-facing quiz management endpoints.
type QuizHandler struct {
	quizService      *service.QuizService
	authService      *service.AuthService
	analyticsService *service.AnalyticsService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(
	quizService *service.QuizService,
	authService *service.AuthService,
	analyticsService *service.AnalyticsService,
) *QuizHandler {
	return &QuizHandler{
		quizService:      quizService,
		authService:      authService,
		analyticsService: analyticsService,
	}
}

// Create godoc
// POST /api/v1/teacher/quizzes
// Creates a quiz with its questions in a single request.
func (h *QuizHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz, err := h.quizService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoCorrectOption),
			errors.Is(err, service.ErrSingleMultiCorrect),
			errors.Is(err, service.ErrPartialSchedule):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"questions": err.Error(),
			})
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"quiz": quiz})
}

// List godoc
// GET /api/v1/teacher/quizzes?page=&per_page=
// Lists quizzes owned by the authenticated teacher, newest first.
func (h *QuizHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	quizzes, pagination, err := h.quizService.ListByOwner(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"quizzes": quizzes}, pagination)
}

// Get godoc
// GET /api/v1/teacher/quizzes/:id
// Returns a single owned quiz with its derived lifecycle state.
func (h *QuizHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, ok := parseQuizID(c)
	if !ok {
		return
	}

	quiz, err := h.quizService.GetOwned(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failQuizLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"quiz":  quiz,
		"state": h.quizService.State(quiz),
	})
}

// Delete godoc
// DELETE /api/v1/teacher/quizzes/:id
// Deletes an owned quiz and everything attached to it.
func (h *QuizHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, ok := parseQuizID(c)
	if !ok {
		return
	}

	if err := h.quizService.Delete(c.Request.Context(), id, claims.UserID); err != nil {
		failQuizLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Activate godoc
// POST /api/v1/teacher/quizzes/:id/activate?confirm_early=true
// Manually activates a quiz. Activating before the scheduled start requires
// the confirm_early flag and is recorded as an early start.
func (h *QuizHandler) Activate(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, ok := parseQuizID(c)
	if !ok {
		return
	}

	confirmEarly := c.Query("confirm_early") == "true"

	quiz, err := h.quizService.Activate(c.Request.Context(), id, claims.UserID, confirmEarly)
	if err != nil {
		failLifecycleAction(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"quiz":  quiz,
		"state": h.quizService.State(quiz),
	})
}

// Deactivate godoc
// POST /api/v1/teacher/quizzes/:id/deactivate?confirm_early=true
// Manually ends a quiz. Ending before the scheduled end requires the
// confirm_early flag and is recorded as an early end.
func (h *QuizHandler) Deactivate(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, ok := parseQuizID(c)
	if !ok {
		return
	}

	confirmEarly := c.Query("confirm_early") == "true"

	quiz, err := h.quizService.Deactivate(c.Request.Context(), id, claims.UserID, confirmEarly)
	if err != nil {
		failLifecycleAction(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"quiz":  quiz,
		"state": h.quizService.State(quiz),
	})
}

// Results godoc
// GET /api/v1/teacher/quizzes/:id/results?page=&per_page=
// Lists attempts against an owned quiz, most recent first.
func (h *QuizHandler) Results(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, ok := parseQuizID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	rows, pagination, err := h.quizService.ListResults(c.Request.Context(), id, claims.UserID, page, perPage)
	if err != nil {
		failQuizLookup(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": rows}, pagination)
}

// ReplaceRoster godoc
// PUT /api/v1/teacher/quizzes/:id/roster
// Replaces the quiz roster wholesale. An empty roster opens the quiz to any
// holder of the access key.
func (h *QuizHandler) ReplaceRoster(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, ok := parseQuizID(c)
	if !ok {
		return
	}

	var req model.ReplaceRosterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.quizService.ReplaceRoster(c.Request.Context(), id, claims.UserID, h.authService, &req); err != nil {
		failQuizLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"count": len(req.Entries)})
}

// ListRoster godoc
// GET /api/v1/teacher/quizzes/:id/roster
func (h *QuizHandler) ListRoster(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, ok := parseQuizID(c)
	if !ok {
		return
	}

	entries, err := h.quizService.ListRoster(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failQuizLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"roster": entries})
}

// Summary godoc
// GET /api/v1/teacher/quizzes/:id/analytics
// Returns aggregate attempt statistics for an owned quiz.
func (h *QuizHandler) Summary(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, ok := parseQuizID(c)
	if !ok {
		return
	}

	summary, err := h.analyticsService.QuizSummary(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failQuizLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

// QuestionBreakdown godoc
// GET /api/v1/teacher/quizzes/:id/analytics/questions
// Returns per-question correctness statistics for an owned quiz.
func (h *QuizHandler) QuestionBreakdown(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, ok := parseQuizID(c)
	if !ok {
		return
	}

	breakdown, err := h.analyticsService.QuestionBreakdown(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failQuizLookup(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": breakdown})
}

// OwnerSummary godoc
// GET /api/v1/teacher/summary
// Returns cross-quiz statistics for the authenticated teacher.
func (h *QuizHandler) OwnerSummary(c *gin.Context) {
	claims := middleware.GetClaims(c)

	summary, err := h.analyticsService.OwnerSummary(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

func parseQuizID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// failQuizLookup maps quiz ownership and lookup errors to API responses.
func failQuizLookup(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrQuizNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotQuizOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotQuizOwner)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// failLifecycleAction maps manual activate/deactivate errors, attaching the
// schedule boundary so clients can render a confirmation dialog.
func failLifecycleAction(c *gin.Context, err error) {
	var conflict *lifecycle.ScheduleConflictError
	if errors.As(err, &conflict) {
		code := response.ErrEarlyStart
		if conflict.Kind == lifecycle.ConflictEarlyEnd {
			code = response.ErrEarlyEnd
		}
		response.FailWithDetails(c, http.StatusConflict, code, map[string]interface{}{
			"boundary": conflict.Boundary,
		})
		return
	}

	switch {
	case errors.Is(err, lifecycle.ErrAlreadyActive):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyActive)
	case errors.Is(err, lifecycle.ErrAlreadyInactive):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyInactive)
	default:
		failQuizLookup(c, err)
	}
}
