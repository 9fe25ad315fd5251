package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quizium/quizium-backend/internal/clock"
	"github.com/quizium/quizium-backend/internal/middleware"
	"github.com/quizium/quizium-backend/internal/model"
	"github.com/quizium/quizium-backend/internal/service"
	"github.com/quizium/quizium-backend/internal/session"
	ws "github.com/quizium/quizium-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams one attempt over a WebSocket. The connection owns an
// in-memory timed session; the DB sees only autosaves and the final submit.
type WSHandler struct {
	quizService    *service.QuizService
	attemptService *service.AttemptService
	clk            clock.Clock
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(quizService *service.QuizService, attemptService *service.AttemptService, clk clock.Clock, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		quizService:    quizService,
		attemptService: attemptService,
		clk:            clk,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:id/stream
// Upgrades to WebSocket for live attempt interaction: selections,
// navigation, visibility events, and submission.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	var studentID *int
	if claims.TokenType == service.TokenTypeStudent {
		studentID = &claims.UserID
	}

	attempt, err := h.attemptService.GetOwned(c.Request.Context(), attemptID, studentID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "attempt not accessible"})
		return
	}
	if attempt.Status != model.AttemptStatusInProgress {
		c.JSON(http.StatusConflict, gin.H{"error": "attempt is not in progress"})
		return
	}

	payload, err := h.quizService.GetQuizPayload(c.Request.Context(), attempt.QuizID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quiz payload unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("attempt_id", attemptID.String()).Logger()
	wsLog.Info().Msg("Participant connected")

	sess := session.New(payload, attempt.StartedAt)

	for {
		var msg ws.Request
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		now := h.clk.Now()

		switch msg.Action {
		case ws.ActionSelect:
			h.handleSelect(conn, attempt, sess, &msg)
		case ws.ActionNavigate:
			h.handleNavigate(conn, sess, msg.Direction)
		case ws.ActionTabSwitch:
			sess.TabSwitch(now)
			if err := h.attemptService.AddTabSwitch(context.Background(), attempt.ID); err != nil {
				wsLog.Warn().Err(err).Msg("Tab switch enqueue failed")
			}
			h.writeState(conn, sess, nil)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, attempt, sess)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}

		// A per-question clock may have run the session out regardless of
		// what the client just asked for.
		if sess.Finished(h.clk.Now()) {
			h.finishExpired(conn, wsLog, attempt, sess)
			return
		}
	}
}

func (h *WSHandler) handleSelect(conn *websocket.Conn, attempt *model.Attempt, sess *session.Session, msg *ws.Request) {
	qid, err := uuid.Parse(msg.QID)
	if err != nil {
		ws.WriteError(conn, "invalid q_id format")
		return
	}
	if msg.Option == "" {
		ws.WriteError(conn, "option is required")
		return
	}

	now := h.clk.Now()
	if err := sess.Select(now, qid, msg.Option); err != nil {
		ws.WriteError(conn, err.Error())
		return
	}

	// Mirror the new selection into the autosave path so a dropped
	// connection resumes with it intact.
	req := &model.SaveAnswerRequest{
		QuestionID:       qid,
		SelectedOptions:  sess.Selected(qid),
		TimeSpentSeconds: 0,
	}
	if err := h.attemptService.SaveAnswer(context.Background(), attempt, req); err != nil {
		h.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Autosave after select failed")
	}

	h.writeState(conn, sess, sess.Selected(qid))
}

func (h *WSHandler) handleNavigate(conn *websocket.Conn, sess *session.Session, direction string) {
	now := h.clk.Now()
	var err error
	switch direction {
	case "next":
		err = sess.Next(now)
	case "prev":
		err = sess.Prev(now)
	default:
		ws.WriteError(conn, "direction must be next or prev")
		return
	}
	if err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	h.writeState(conn, sess, nil)
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, attempt *model.Attempt, sess *session.Session) {
	outcome, err := sess.Submit(h.clk.Now())
	if err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	h.persistOutcome(conn, wsLog, attempt, outcome)
}

// finishExpired handles the session running out of time mid-connection.
func (h *WSHandler) finishExpired(conn *websocket.Conn, wsLog zerolog.Logger, attempt *model.Attempt, sess *session.Session) {
	outcome := sess.Outcome()
	if outcome == nil {
		return
	}
	h.persistOutcome(conn, wsLog, attempt, outcome)
}

func (h *WSHandler) persistOutcome(conn *websocket.Conn, wsLog zerolog.Logger, attempt *model.Attempt, outcome *session.Outcome) {
	result, err := h.attemptService.FinishWithAnswers(context.Background(), attempt, outcome.Answers, outcome.Status)
	if err != nil {
		if err == service.ErrAttemptFinished {
			ws.WriteError(conn, "attempt was already finished")
			return
		}
		wsLog.Error().Err(err).Msg("Finish attempt failed")
		ws.WriteError(conn, "submission failed")
		return
	}

	wsLog.Info().
		Str("status", string(result.Status)).
		Int("score", result.Score).
		Int("total", result.TotalScore).
		Msg("Attempt submitted over stream")

	ws.WriteTyped(conn, ws.SubmittedResponse{
		Event:      ws.EventSubmitted,
		Status:     string(result.Status),
		Score:      result.Score,
		TotalScore: result.TotalScore,
		Percentage: result.Percentage,
		Passed:     result.Passed,
	})
}

func (h *WSHandler) writeState(conn *websocket.Conn, sess *session.Session, selected []string) {
	now := h.clk.Now()
	ws.WriteTyped(conn, ws.StateResponse{
		Event:            ws.EventState,
		CurrentIndex:     sess.CurrentIndex(now),
		RemainingSeconds: sess.Remaining(now),
		Selected:         selected,
		TabSwitchCount:   sess.TabSwitches(),
	})
}
