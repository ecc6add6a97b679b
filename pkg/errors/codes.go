package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_005"
	ErrCodeTimeout            ErrorCode = "COMMON_006"
	ErrCodeValidation         ErrorCode = "COMMON_007"
	ErrCodeSerialization      ErrorCode = "COMMON_008"
	ErrCodeDatabaseError      ErrorCode = "COMMON_009"
	ErrCodeCacheError         ErrorCode = "COMMON_010"
	ErrCodeExternalService    ErrorCode = "COMMON_011"
	ErrCodeNotImplemented     ErrorCode = "COMMON_012"
)

// Transcript module error codes
const (
	ErrCodeTranscriptEmpty       ErrorCode = "TRN_001"
	ErrCodeTranscriptTooShort    ErrorCode = "TRN_002"
	ErrCodeTranscriptNotFound    ErrorCode = "TRN_003"
	ErrCodeTimestampInvalid      ErrorCode = "TRN_004"
	ErrCodeTranscriptStoreFailed ErrorCode = "TRN_005"
)

// Rubric module error codes
const (
	ErrCodeRubricNotFound       ErrorCode = "RUB_001"
	ErrCodeRubricAlreadyExists  ErrorCode = "RUB_002"
	ErrCodeRubricInvalid        ErrorCode = "RUB_003"
	ErrCodeRubricNotApproved    ErrorCode = "RUB_004"
	ErrCodeRubricAlreadyApproved ErrorCode = "RUB_005"
	ErrCodeRubricDeleteApproved ErrorCode = "RUB_006"
	ErrCodeRubricVersionInvalid ErrorCode = "RUB_007"
	ErrCodeRubricPatchFailed    ErrorCode = "RUB_008"
)

// Evaluation module error codes
const (
	ErrCodeEvaluationFailed   ErrorCode = "EVAL_001"
	ErrCodeCitationInvalid    ErrorCode = "EVAL_002"
	ErrCodeWeightsInvalid     ErrorCode = "EVAL_003"
	ErrCodeLexicalRankFailed  ErrorCode = "EVAL_004"
	ErrCodeSemanticRankFailed ErrorCode = "EVAL_005"
)

// Orchestration / oracle error codes
const (
	ErrCodeGradingNotFound     ErrorCode = "ORC_001"
	ErrCodeGradingFailed       ErrorCode = "ORC_002"
	ErrCodeOracleUnavailable   ErrorCode = "ORC_003"
	ErrCodeOracleSchemaInvalid ErrorCode = "ORC_004"
	ErrCodeQueuePublishFailed  ErrorCode = "ORC_005"
)

// Aliases used across layers
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")

	CodeDatabaseError   = ErrCodeDatabaseError
	CodeDBQueryError    = ErrCodeDatabaseError
	CodeCacheError      = ErrCodeCacheError
	CodeStorageError    = ErrCodeTranscriptStoreFailed
	CodeSearchError     = ErrCodeLexicalRankFailed
	CodeMessageQueueError = ErrCodeQueuePublishFailed

	CodeRubricNotFound  = ErrCodeRubricNotFound
	CodeGradingNotFound = ErrCodeGradingNotFound
	CodeRubricInvalid   = ErrCodeRubricInvalid
	CodeRubricNotApproved = ErrCodeRubricNotApproved
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeTranscriptEmpty:       http.StatusBadRequest,
	ErrCodeTranscriptTooShort:    http.StatusUnprocessableEntity,
	ErrCodeTranscriptNotFound:    http.StatusNotFound,
	ErrCodeTimestampInvalid:      http.StatusBadRequest,
	ErrCodeTranscriptStoreFailed: http.StatusInternalServerError,

	ErrCodeRubricNotFound:        http.StatusNotFound,
	ErrCodeRubricAlreadyExists:   http.StatusConflict,
	ErrCodeRubricInvalid:         http.StatusUnprocessableEntity,
	ErrCodeRubricNotApproved:     http.StatusConflict,
	ErrCodeRubricAlreadyApproved: http.StatusConflict,
	ErrCodeRubricDeleteApproved:  http.StatusForbidden,
	ErrCodeRubricVersionInvalid:  http.StatusBadRequest,
	ErrCodeRubricPatchFailed:     http.StatusUnprocessableEntity,

	ErrCodeEvaluationFailed:   http.StatusInternalServerError,
	ErrCodeCitationInvalid:    http.StatusInternalServerError,
	ErrCodeWeightsInvalid:     http.StatusUnprocessableEntity,
	ErrCodeLexicalRankFailed:  http.StatusInternalServerError,
	ErrCodeSemanticRankFailed: http.StatusInternalServerError,

	ErrCodeGradingNotFound:     http.StatusNotFound,
	ErrCodeGradingFailed:       http.StatusInternalServerError,
	ErrCodeOracleUnavailable:   http.StatusServiceUnavailable,
	ErrCodeOracleSchemaInvalid: http.StatusInternalServerError,
	ErrCodeQueuePublishFailed:  http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeTranscriptEmpty:       "transcript is empty",
	ErrCodeTranscriptTooShort:    "transcript too short to grade",
	ErrCodeTranscriptNotFound:    "transcript not found",
	ErrCodeTimestampInvalid:      "invalid timestamp format",
	ErrCodeTranscriptStoreFailed: "failed to store transcript artifact",

	ErrCodeRubricNotFound:        "rubric not found",
	ErrCodeRubricAlreadyExists:   "rubric version already exists",
	ErrCodeRubricInvalid:         "rubric failed validation",
	ErrCodeRubricNotApproved:     "rubric version is not approved",
	ErrCodeRubricAlreadyApproved: "rubric version is already approved",
	ErrCodeRubricDeleteApproved:  "approved rubric versions cannot be deleted",
	ErrCodeRubricVersionInvalid:  "invalid rubric version",
	ErrCodeRubricPatchFailed:     "failed to apply rubric patch",

	ErrCodeEvaluationFailed:   "evaluation failed",
	ErrCodeCitationInvalid:    "invalid citation",
	ErrCodeWeightsInvalid:     "component weights must sum to 1.0",
	ErrCodeLexicalRankFailed:  "lexical ranking failed",
	ErrCodeSemanticRankFailed: "semantic ranking failed",

	ErrCodeGradingNotFound:     "grading result not found",
	ErrCodeGradingFailed:       "grading pipeline failed",
	ErrCodeOracleUnavailable:   "extraction oracle unavailable",
	ErrCodeOracleSchemaInvalid: "oracle response failed schema validation",
	ErrCodeQueuePublishFailed:  "failed to publish grading event",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
