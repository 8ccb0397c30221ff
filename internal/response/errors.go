package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation         ErrCode = "VALIDATION_ERROR"
	ErrInvalidID          ErrCode = "INVALID_ID"
	ErrInvalidPayload     ErrCode = "INVALID_PAYLOAD"
	ErrInvalidSearchField ErrCode = "INVALID_SEARCH_FIELD"
	ErrRepeatedAnswer     ErrCode = "REPEATED_ANSWER"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound           ErrCode = "NOT_FOUND"
	ErrExamNotFound       ErrCode = "EXAM_NOT_FOUND"
	ErrClassNotFound      ErrCode = "CLASS_NOT_FOUND"
	ErrResultNotFound     ErrCode = "RESULT_NOT_FOUND"
	ErrResultNotAvailable ErrCode = "RESULT_NOT_AVAILABLE"
	ErrEmptyCatalogue     ErrCode = "EMPTY_CATALOGUE"
	ErrConflict           ErrCode = "CONFLICT"
	ErrSubjectExists      ErrCode = "SUBJECT_EXISTS"
	ErrClassExists        ErrCode = "CLASS_EXISTS"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrExamActive            ErrCode = "EXAM_ACTIVE"
	ErrDuplicateResult       ErrCode = "DUPLICATE_RESULT"
	ErrNoQuestions           ErrCode = "NO_QUESTIONS"
	ErrNoQuestionsFound      ErrCode = "NO_QUESTIONS_FOUND"
	ErrInsufficientQuestions ErrCode = "INSUFFICIENT_QUESTIONS"
	ErrInsufficientRemaining ErrCode = "INSUFFICIENT_REMAINING_QUESTIONS"

	// ─── Upload ────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrServiceUnavailable ErrCode = "SERVICE_UNAVAILABLE"
	ErrInternal           ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrInvalidSearchField:
		return "This field cannot be searched."
	case ErrRepeatedAnswer:
		return "Each question can be answered once per submission."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrExamNotFound:
		return "Exam not found."
	case ErrClassNotFound:
		return "Class not found."
	case ErrResultNotFound:
		return "Result not found."
	case ErrResultNotAvailable:
		return "Result not yet available."
	case ErrEmptyCatalogue:
		return "There is nothing here yet."
	case ErrConflict:
		return "Resource already exists."
	case ErrSubjectExists:
		return "Subject already exists."
	case ErrClassExists:
		return "Class already exists."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrExamActive:
		return "Can't delete an ongoing exam."
	case ErrDuplicateResult:
		return "A result has already been submitted for this exam."
	case ErrNoQuestions:
		return "This exam has no questions."
	case ErrNoQuestionsFound:
		return "No valid questions found in the file."
	case ErrInsufficientQuestions:
		return "The question bank has to contain at least as many questions as students are to answer."
	case ErrInsufficientRemaining:
		return "Not enough questions left to complete this question set."

	// ─── Upload ────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "Question file is required."
	case ErrUnsupportedFile:
		return "Unsupported file format. Only .docx or .pdf allowed."
	case ErrFileTooLarge:
		return "File size exceeds the limit."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrServiceUnavailable:
		return "A backing store is unreachable. Please try again later."
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
