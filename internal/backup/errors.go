package backup

import (
	"errors"
	"fmt"
)

// BackupError represents errors that occur during backup and restore operations
type BackupError struct {
	Type    BackupErrorType        `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *BackupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// BackupErrorType represents different types of backup errors
type BackupErrorType string

const (
	BackupErrorTypeTableRead     BackupErrorType = "TABLE_READ_ERROR"
	BackupErrorTypeTableWrite    BackupErrorType = "TABLE_WRITE_ERROR"
	BackupErrorTypeSerialization BackupErrorType = "SERIALIZATION_ERROR"
	BackupErrorTypeCompression   BackupErrorType = "COMPRESSION_ERROR"
	BackupErrorTypeDecompression BackupErrorType = "DECOMPRESSION_ERROR"
	BackupErrorTypeEncryption    BackupErrorType = "ENCRYPTION_ERROR"
	BackupErrorTypeDecryption    BackupErrorType = "DECRYPTION_ERROR"
	BackupErrorTypeUpload        BackupErrorType = "UPLOAD_ERROR"
	BackupErrorTypeStorage       BackupErrorType = "STORAGE_ERROR"
	BackupErrorTypeCatalogWrite  BackupErrorType = "CATALOG_WRITE_ERROR"
	BackupErrorTypeConcurrentRun BackupErrorType = "CONCURRENT_RUN_ERROR"
	BackupErrorTypeFormatVersion BackupErrorType = "FORMAT_VERSION_ERROR"
	BackupErrorTypeNotFound      BackupErrorType = "NOT_FOUND_ERROR"
	BackupErrorTypeValidation    BackupErrorType = "VALIDATION_ERROR"
	BackupErrorTypeConfiguration BackupErrorType = "CONFIGURATION_ERROR"
	BackupErrorTypeNotification  BackupErrorType = "NOTIFICATION_ERROR"
)

// NewBackupError creates a new BackupError
func NewBackupError(errorType BackupErrorType, message string, cause error) *BackupError {
	return &BackupError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *BackupError) WithContext(key string, value interface{}) *BackupError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors

func NewTableReadError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeTableRead, message, cause)
}

func NewTableWriteError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeTableWrite, message, cause)
}

func NewSerializationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeSerialization, message, cause)
}

func NewCompressionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCompression, message, cause)
}

func NewDecompressionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeDecompression, message, cause)
}

func NewEncryptionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeEncryption, message, cause)
}

func NewDecryptionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeDecryption, message, cause)
}

func NewUploadError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeUpload, message, cause)
}

func NewStorageError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeStorage, message, cause)
}

func NewCatalogWriteError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCatalogWrite, message, cause)
}

func NewConcurrentRunError(message string) *BackupError {
	return NewBackupError(BackupErrorTypeConcurrentRun, message, nil)
}

func NewFormatVersionError(message string) *BackupError {
	return NewBackupError(BackupErrorTypeFormatVersion, message, nil)
}

func NewNotFoundError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeNotFound, message, cause)
}

func NewValidationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeValidation, message, cause)
}

func NewConfigurationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeConfiguration, message, cause)
}

func NewNotificationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeNotification, message, cause)
}

// IsErrorType reports whether err (or any error it wraps) is a BackupError
// of the given type.
func IsErrorType(err error, errorType BackupErrorType) bool {
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		return backupErr.Type == errorType
	}
	return false
}

// IsRetryable determines if an error is retryable
func IsRetryable(err error) bool {
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		switch backupErr.Type {
		case BackupErrorTypeUpload, BackupErrorTypeStorage, BackupErrorTypeNotification:
			return true
		default:
			return false
		}
	}
	return false
}

// IsPermanent determines if an error is permanent and should not be retried
func IsPermanent(err error) bool {
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		switch backupErr.Type {
		case BackupErrorTypeValidation, BackupErrorTypeConfiguration,
			BackupErrorTypeDecryption, BackupErrorTypeFormatVersion:
			return true
		default:
			return false
		}
	}
	return false
}

// ValidationError represents validation-specific errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Add adds a validation error to the collection
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
