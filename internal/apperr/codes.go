package apperr

import "net/http"

// Code is a machine-readable error category.
type Code string

const (
	CodeValidation       Code = "VALIDATION"
	CodeDuplicateEmail   Code = "DUPLICATE_EMAIL"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeForbidden        Code = "FORBIDDEN"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeStore            Code = "STORE"
)

// Status maps a code to its HTTP status.
func (c Code) Status() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeDuplicateEmail:
		return http.StatusConflict
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden, CodePermissionDenied:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}
