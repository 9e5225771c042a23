// Package errors provides structured error handling for scansage operations.
// It defines error codes, error types, and provides utilities for creating
// and handling errors with context and structured information.
package errors

import (
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeInternal      ErrorCode = "INTERNAL"

	// Payload boundary errors.
	CodePayloadOversize   ErrorCode = "PAYLOAD_OVERSIZE"
	CodeEncodingInvalid   ErrorCode = "ENCODING_INVALID"
	CodeUnsafeDeclaration ErrorCode = "UNSAFE_DECLARATION"
	CodeMalformedXML      ErrorCode = "MALFORMED_XML"
	CodeMalformedPayload  ErrorCode = "MALFORMED_PAYLOAD"
	CodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	CodeUnsupportedParser ErrorCode = "UNSUPPORTED_PARSER"

	// Response contract errors.
	CodeResponseShape ErrorCode = "RESPONSE_SHAPE"

	// Retention store errors.
	CodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"
	CodeStoreIO        ErrorCode = "STORE_IO"

	// File system errors.
	CodeDirectoryCreate ErrorCode = "DIRECTORY_CREATE"
	CodeFileWrite       ErrorCode = "FILE_WRITE"
	CodeFileRotate      ErrorCode = "FILE_ROTATE"
)

// IngestError represents an error that occurred while ingesting a payload.
// Messages are fixed per code and never carry payload text.
type IngestError struct {
	Code      ErrorCode
	Message   string
	Operation string
	Cause     error
	Context   map[string]interface{}
}

// Error implements the error interface.
func (e *IngestError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation: %s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *IngestError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *IngestError) WithContext(key string, value interface{}) *IngestError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewIngestError creates a new ingest error with the specified code and message.
func NewIngestError(code ErrorCode, message string) *IngestError {
	return &IngestError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WrapIngestError wraps an existing error as an ingest error.
func WrapIngestError(code ErrorCode, message string, err error) *IngestError {
	return &IngestError{
		Code:    code,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// AuditError represents a failure of the durable audit sink.
type AuditError struct {
	Code    ErrorCode
	Message string
	Kind    string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AuditError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("[%s] %s (kind: %s)", e.Code, e.Message, e.Kind)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AuditError) Unwrap() error {
	return e.Cause
}

// NewAuditError creates a new audit error.
func NewAuditError(code ErrorCode, message string) *AuditError {
	return &AuditError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WrapAuditError wraps an existing error as an audit error.
func WrapAuditError(code ErrorCode, message, kind string, err error) *AuditError {
	return &AuditError{
		Code:    code,
		Message: message,
		Kind:    kind,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// StoreError represents retention store errors.
type StoreError struct {
	Code      ErrorCode
	Message   string
	Operation string
	Cause     error
	Context   map[string]interface{}
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation: %s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError creates a new store error.
func NewStoreError(code ErrorCode, message string) *StoreError {
	return &StoreError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WrapStoreError wraps an existing error as a store error.
func WrapStoreError(code ErrorCode, message string, err error) *StoreError {
	return &StoreError{
		Code:    code,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error.
func NewConfigError(code ErrorCode, message string) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
	}
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Utility functions for common error operations

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	switch e := err.(type) {
	case *IngestError:
		return e.Code == code
	case *AuditError:
		return e.Code == code
	case *StoreError:
		return e.Code == code
	case *ConfigError:
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *IngestError:
		return e.Code
	case *AuditError:
		return e.Code
	case *StoreError:
		return e.Code
	case *ConfigError:
		return e.Code
	}
	return CodeUnknown
}

// IsBoundaryRejection determines if an error belongs to the input rejection
// taxonomy. Every such error maps to a generic public reason and must never
// surface its internal message to a caller.
func IsBoundaryRejection(err error) bool {
	code := GetCode(err)
	switch code {
	case CodeEncodingInvalid, CodeUnsafeDeclaration, CodeMalformedXML,
		CodeMalformedPayload, CodeUnsupportedFormat, CodeUnsupportedParser,
		CodeValidation:
		return true
	default:
		return false
	}
}

// IsFatal determines if an error indicates a fatal condition that should stop execution.
func IsFatal(err error) bool {
	code := GetCode(err)
	switch code {
	case CodeConfiguration:
		return true
	default:
		return false
	}
}

// Common error creation functions

// ErrPayloadOversize creates an error for payloads exceeding the byte limit.
func ErrPayloadOversize() *IngestError {
	return NewIngestError(CodePayloadOversize, "Payload exceeds the configured size limit")
}

// ErrInvalidEncoding creates an error for payloads that are not valid UTF-8.
func ErrInvalidEncoding() *IngestError {
	return NewIngestError(CodeEncodingInvalid, "Payload is not valid UTF-8 text")
}

// ErrUnsafeDeclaration creates an error for payloads carrying DTD or entity markup.
func ErrUnsafeDeclaration() *IngestError {
	return NewIngestError(CodeUnsafeDeclaration, "Payload contains prohibited markup declarations")
}

// ErrMalformedXML creates an error for payloads that fail XML parsing.
func ErrMalformedXML(err error) *IngestError {
	return WrapIngestError(CodeMalformedXML, "Payload is not well-formed XML", err)
}

// ErrMalformedPayload creates an error for unparseable non-XML payloads.
func ErrMalformedPayload() *IngestError {
	return NewIngestError(CodeMalformedPayload, "Payload contains an unrecognized line")
}

// ErrUnsupportedFormat creates an error for unknown ingestion formats.
func ErrUnsupportedFormat() *IngestError {
	return NewIngestError(CodeUnsupportedFormat, "Requested format is not supported")
}

// ErrUnsupportedParser creates an error for unrecognized parser selections.
func ErrUnsupportedParser() *IngestError {
	return NewIngestError(CodeUnsupportedParser, "Requested parser is not recognized")
}

// ErrResponseShape creates an error for responses failing their own contract.
func ErrResponseShape(err error) *IngestError {
	return WrapIngestError(CodeResponseShape, "Assembled response failed shape validation", err)
}

// ErrRecordNotFound creates an error for retrieval of an unknown identifier.
func ErrRecordNotFound() *StoreError {
	return NewStoreError(CodeRecordNotFound, "No ingest record exists for that identifier")
}

// ErrAuditWrite creates an error for durable audit sink failures.
func ErrAuditWrite(kind string, err error) *AuditError {
	return WrapAuditError(CodeFileWrite, "Audit event could not be written", kind, err)
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "Invalid configuration value", field, value)
}

// ErrConfigMissing creates an error for missing required configuration.
func ErrConfigMissing(field string) *ConfigError {
	return NewConfigFieldError(CodeConfiguration, "Required configuration field missing", field, nil)
}
