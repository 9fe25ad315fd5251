package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrNotQuizOwner      ErrCode = "NOT_QUIZ_OWNER"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Quiz lifecycle ────────────────────────────────────────────────
	ErrQuizNotStarted  ErrCode = "QUIZ_NOT_STARTED"
	ErrQuizEnded       ErrCode = "QUIZ_ENDED"
	ErrQuizInactive    ErrCode = "QUIZ_INACTIVE"
	ErrAlreadyActive   ErrCode = "QUIZ_ALREADY_ACTIVE"
	ErrAlreadyInactive ErrCode = "QUIZ_ALREADY_INACTIVE"
	ErrEarlyStart      ErrCode = "EARLY_START_CONFIRMATION_REQUIRED"
	ErrEarlyEnd        ErrCode = "EARLY_END_CONFIRMATION_REQUIRED"

	// ─── Attempts ──────────────────────────────────────────────────────
	ErrAlreadyAttempted ErrCode = "ALREADY_ATTEMPTED"
	ErrAlreadySubmitted ErrCode = "ALREADY_SUBMITTED"
	ErrInvalidAccessKey ErrCode = "INVALID_ACCESS_KEY"
	ErrAttemptFinished  ErrCode = "ATTEMPT_FINISHED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid credentials."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrNotQuizOwner:
		return "You are not the owner of this quiz."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrTeacherAccessOnly:
		return "This resource is restricted to teachers."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "The resource already exists."

	// ─── Quiz lifecycle ────────────────────────────────────────────────
	case ErrQuizNotStarted:
		return "This quiz has not started yet."
	case ErrQuizEnded:
		return "This quiz has already ended."
	case ErrQuizInactive:
		return "This quiz is not currently active."
	case ErrAlreadyActive:
		return "This quiz is already active."
	case ErrAlreadyInactive:
		return "This quiz is already inactive."
	case ErrEarlyStart:
		return "The scheduled start has not been reached. Confirm to start early."
	case ErrEarlyEnd:
		return "The scheduled end has not been reached. Confirm to end early."

	// ─── Attempts ──────────────────────────────────────────────────────
	case ErrAlreadyAttempted:
		return "You have already attempted this quiz."
	case ErrAlreadySubmitted:
		return "This attempt has already been submitted."
	case ErrInvalidAccessKey:
		return "The access key is invalid."
	case ErrAttemptFinished:
		return "This attempt is no longer in progress."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
