// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeCareNeedsInvalid ErrorCode = "CARE_NEEDS_INVALID"
	ErrCodeGeocodeFailed    ErrorCode = "GEOCODE_FAILED"

	ErrCodeFacilityNotFound ErrorCode = "FACILITY_NOT_FOUND"
	ErrCodeMatchScoreFailed ErrorCode = "MATCH_SCORE_FAILED"
	ErrCodeRankingFailed    ErrorCode = "RANKING_FAILED"

	ErrCodeTemplateNotFound         ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateValidationFailed ErrorCode = "TEMPLATE_VALIDATION_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeInvalidQueryType         ErrorCode = "INVALID_QUERY_TYPE"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout                 ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeFormTypeUnknown  ErrorCode = "FORM_TYPE_UNKNOWN"
	ErrCodeFormDataInvalid  ErrorCode = "FORM_DATA_INVALID"
	ErrCodeFormRenderFailed ErrorCode = "FORM_RENDER_FAILED"
	ErrCodeFormUploadFailed ErrorCode = "FORM_UPLOAD_FAILED"
	ErrCodeFormTooLarge     ErrorCode = "FORM_TOO_LARGE"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeRecipientNotFound      ErrorCode = "RECIPIENT_NOT_FOUND"

	ErrCodeInputParseFailed ErrorCode = "INPUT_PARSE_FAILED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"

	ErrCodeExternalService  ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout          ErrorCode = "TIMEOUT_ERROR"
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// AsStandardError unwraps err looking for a *StandardError.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewCareNeedsInvalidError reports wizard answers that cannot form a CareNeeds record.
func NewCareNeedsInvalidError(details string) *StandardError {
	return newError(ErrCodeCareNeedsInvalid, "Care needs failed validation", details, false)
}

// NewGeocodeFailedError reports a zip lookup that could not be resolved.
func NewGeocodeFailedError(zip string, err error) *StandardError {
	return newError(ErrCodeGeocodeFailed, "Geocoding request failed",
		fmt.Sprintf("zip: %s, error: %v", zip, err), true)
}

func NewFacilityNotFoundError(facilityID string) *StandardError {
	return newError(ErrCodeFacilityNotFound, "Facility not found",
		fmt.Sprintf("facilityId: %s", facilityID), false)
}

func NewMatchScoreFailedError(details string) *StandardError {
	return newError(ErrCodeMatchScoreFailed, "Match score calculation failed", details, false)
}

func NewRankingFailedError(err error) *StandardError {
	return newError(ErrCodeRankingFailed, "Facility ranking failed", err.Error(), true)
}

// NewTemplateNotFoundError creates a non-retryable template error.
func NewTemplateNotFoundError(templateID string) *StandardError {
	return newError(ErrCodeTemplateNotFound, "Template not found in registry",
		fmt.Sprintf("templateId: %s", templateID), false)
}

// NewTemplateValidationFailedError creates a non-retryable template validation error.
func NewTemplateValidationFailedError(details string) *StandardError {
	return newError(ErrCodeTemplateValidationFailed, "Data validation failed for template", details, false)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()), true)
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryType string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout",
		fmt.Sprintf("queryType: %s", queryType), true)
}

// NewInvalidQueryTypeError creates a non-retryable invalid query type error.
func NewInvalidQueryTypeError(queryType string) *StandardError {
	return newError(ErrCodeInvalidQueryType, "Unsupported query type",
		fmt.Sprintf("queryType: %s", queryType), false)
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeElasticsearchConnectionFailed, "Elasticsearch connection error", err.Error(), true)
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()), true)
}

// NewSearchTimeoutError creates a retryable search timeout error.
func NewSearchTimeoutError(queryType string) *StandardError {
	return newError(ErrCodeSearchTimeout, "Elasticsearch query timeout",
		fmt.Sprintf("queryType: %s", queryType), true)
}

// NewIndexNotFoundError creates a non-retryable index not found error.
func NewIndexNotFoundError(indexName string) *StandardError {
	return newError(ErrCodeIndexNotFound, "Elasticsearch index not found",
		fmt.Sprintf("indexName: %s", indexName), false)
}

func NewFormTypeUnknownError(formType string) *StandardError {
	return newError(ErrCodeFormTypeUnknown, "Unknown regulatory form type",
		fmt.Sprintf("formType: %s", formType), false)
}

func NewFormDataInvalidError(details string) *StandardError {
	return newError(ErrCodeFormDataInvalid, "Form data failed validation", details, false)
}

func NewFormRenderFailedError(formType string, err error) *StandardError {
	return newError(ErrCodeFormRenderFailed, "Form rendering failed",
		fmt.Sprintf("formType: %s, error: %v", formType, err), false)
}

func NewFormUploadFailedError(key string, err error) *StandardError {
	return newError(ErrCodeFormUploadFailed, "Form upload failed",
		fmt.Sprintf("key: %s, error: %v", key, err), true)
}

func NewFormTooLargeError(size, limit int) *StandardError {
	return newError(ErrCodeFormTooLarge, "Rendered form exceeds the inline size limit",
		fmt.Sprintf("size: %d, limit: %d", size, limit), false)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()), true)
}

func NewRecipientNotFoundError(recipientType, recipientID string) *StandardError {
	return newError(ErrCodeRecipientNotFound, "Notification recipient not found",
		fmt.Sprintf("recipientType: %s, recipientId: %s", recipientType, recipientID), false)
}

func NewInputParseFailedError(err error) *StandardError {
	return newError(ErrCodeInputParseFailed, "Job variables could not be parsed", err.Error(), false)
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), details, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal codes to the codes modelled on BPMN error boundary events.
// Codes absent from the map pass through unchanged.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeCareNeedsInvalid:              "CARE_NEEDS_INVALID",
	ErrCodeGeocodeFailed:                 "GEOCODE_FAILED",
	ErrCodeFacilityNotFound:              "FACILITY_NOT_FOUND",
	ErrCodeMatchScoreFailed:              "MATCH_SCORE_FAILED",
	ErrCodeRankingFailed:                 "RANKING_FAILED",
	ErrCodeTemplateNotFound:              "TEMPLATE_NOT_FOUND",
	ErrCodeTemplateValidationFailed:      "TEMPLATE_VALIDATION_FAILED",
	ErrCodeDatabaseConnectionFailed:      "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:          "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:                  "QUERY_TIMEOUT",
	ErrCodeInvalidQueryType:              "INVALID_QUERY_TYPE",
	ErrCodeElasticsearchConnectionFailed: "ELASTICSEARCH_CONNECTION_FAILED",
	ErrCodeSearchQueryFailed:             "SEARCH_QUERY_FAILED",
	ErrCodeSearchTimeout:                 "SEARCH_TIMEOUT",
	ErrCodeIndexNotFound:                 "INDEX_NOT_FOUND",
	ErrCodeFormTypeUnknown:               "FORM_TYPE_UNKNOWN",
	ErrCodeFormDataInvalid:               "FORM_DATA_INVALID",
	ErrCodeFormRenderFailed:              "FORM_RENDER_FAILED",
	ErrCodeFormUploadFailed:              "FORM_UPLOAD_FAILED",
	ErrCodeFormTooLarge:                  "FORM_TOO_LARGE",
	ErrCodeNotificationSendFailed:        "NOTIFICATION_SEND_FAILED",
	ErrCodeRecipientNotFound:             "RECIPIENT_NOT_FOUND",
	ErrCodeInputParseFailed:              "INPUT_PARSE_FAILED",
}

// IsKnownCode reports whether code is one the workers can raise.
func IsKnownCode(code string) bool {
	switch ErrorCode(code) {
	case ErrCodeInternal, ErrCodeExternalService, ErrCodeTimeout, ErrCodeResourceNotFound:
		return true
	}
	_, ok := BPMNErrorMapping[ErrorCode(code)]
	return ok
}

// GetRetryCount returns the number of retries a failed job gets for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeRankingFailed,
		ErrCodeFormUploadFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeSearchTimeout,
		ErrCodeGeocodeFailed:
		return 2

	default:
		return 0 // business errors go straight to the boundary event
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     GetErrorCategory(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "CARE_NEEDS") || strings.HasPrefix(codeStr, "GEOCODE"):
		return "INTAKE"
	case strings.HasPrefix(codeStr, "FACILITY") || strings.HasPrefix(codeStr, "MATCH") || strings.HasPrefix(codeStr, "RANKING"):
		return "MATCHING"
	case strings.HasPrefix(codeStr, "FORM"):
		return "FORMS"
	case strings.Contains(codeStr, "TEMPLATE"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "RECIPIENT"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "PARSE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
