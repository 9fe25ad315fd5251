package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/quizium/quizium-backend/internal/response"
	"github.com/quizium/quizium-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func runFailJoin(t *testing.T, err error) (int, response.ErrCode) {
	t.Helper()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	failJoin(c, err)

	var body struct {
		Error *response.ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error == nil {
		t.Fatal("expected an error body")
	}
	return rec.Code, body.Error.Code
}

func TestFailJoinMapsAdmissionErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   response.ErrCode
	}{
		{"not started", service.ErrQuizNotStarted, http.StatusConflict, response.ErrQuizNotStarted},
		{"ended", service.ErrQuizEnded, http.StatusConflict, response.ErrQuizEnded},
		{"inactive", service.ErrQuizInactive, http.StatusConflict, response.ErrQuizInactive},
		{"already attempted", service.ErrAlreadyAttempted, http.StatusConflict, response.ErrAlreadyAttempted},
		{"invalid key", service.ErrInvalidAccessKey, http.StatusForbidden, response.ErrInvalidAccessKey},
		{"wrong roster secret", service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
		{"not on roster", service.ErrNotOnRoster, http.StatusForbidden, response.ErrForbidden},
		{"missing quiz", service.ErrQuizNotFound, http.StatusNotFound, response.ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := runFailJoin(t, tc.err)
			if status != tc.wantStatus {
				t.Errorf("status = %d, want %d", status, tc.wantStatus)
			}
			if code != tc.wantCode {
				t.Errorf("code = %s, want %s", code, tc.wantCode)
			}
		})
	}
}

// A rejected roster credential must never surface as an internal error;
// the caller needs to know a retry with the right secret can succeed.
func TestFailJoinCredentialMismatchIsNotInternal(t *testing.T) {
	status, code := runFailJoin(t, service.ErrInvalidCredentials)
	if status == http.StatusInternalServerError || code == response.ErrInternal {
		t.Fatalf("credential mismatch surfaced as internal error: status=%d code=%s", status, code)
	}
}
