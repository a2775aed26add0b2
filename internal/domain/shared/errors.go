package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrSchemaInvalid = NewDomainError("SCHEMA_INVALID", "Form schema definition is invalid")
	ErrConflict      = NewDomainError("CONFLICT", "Resource conflicts with existing state")
	ErrUnavailable   = NewDomainError("UNAVAILABLE", "Storage is temporarily unavailable")
)
