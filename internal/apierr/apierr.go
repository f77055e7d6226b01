// Package apierr is the structured error taxonomy shared by the slot
// validator, the compiler, and the tool facade.
//
// Every tool-facing failure is one of a fixed set of codes with a recovery
// hint and a details map, ported from the structured error model in
// original_source/src/tools/errors.py (StructuredToolError). Go transports
// that flatten an error to a single string still need to carry the code and
// hint, so Error() inlines them.
package apierr

import (
	"fmt"
	"strings"
)

// Code is a stable, machine-readable error identifier. The set is a
// contract: do not rename or remove a value without updating every caller.
type Code string

const (
	NotFound               Code = "NOT_FOUND"
	CardNotFound            Code = "CARD_NOT_FOUND"
	StrategyNotFound        Code = "STRATEGY_NOT_FOUND"
	ArchetypeNotFound       Code = "ARCHETYPE_NOT_FOUND"
	SchemaNotFound          Code = "SCHEMA_NOT_FOUND"
	ValidationError         Code = "VALIDATION_ERROR"
	SchemaValidationError   Code = "SCHEMA_VALIDATION_ERROR"
	SchemaEtagMismatch      Code = "SCHEMA_ETAG_MISMATCH"
	InvalidRole             Code = "INVALID_ROLE"
	InvalidStatus           Code = "INVALID_STATUS"
	DuplicateAttachment     Code = "DUPLICATE_ATTACHMENT"
	AttachmentNotFound      Code = "ATTACHMENT_NOT_FOUND"
	DatabaseError           Code = "DATABASE_ERROR"
	NetworkError            Code = "NETWORK_ERROR"
	TimeoutError            Code = "TIMEOUT_ERROR"
	InternalError           Code = "INTERNAL_ERROR"
)

// Error is the structured error type raised at the service boundary.
type Error struct {
	Code         Code
	Message      string
	RecoveryHint string
	Details      map[string]any
}

// Error implements the error interface. The code and recovery hint are
// inlined so transports that drop structured fields still surface them.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	fmt.Fprintf(&b, "\nError code: %s", e.Code)
	if e.RecoveryHint != "" {
		fmt.Fprintf(&b, "\nRecovery hint: %s", e.RecoveryHint)
	}
	return b.String()
}

// NotFoundErr builds a *_NOT_FOUND error for the given resource type.
func NotFoundErr(resourceType, resourceID, recoveryHint string) *Error {
	codeByResource := map[string]Code{
		"Card":      CardNotFound,
		"Strategy":  StrategyNotFound,
		"Archetype": ArchetypeNotFound,
		"Schema":    SchemaNotFound,
	}
	code, ok := codeByResource[resourceType]
	if !ok {
		code = NotFound
	}
	return &Error{
		Code:         code,
		Message:      fmt.Sprintf("%s not found: %s", resourceType, resourceID),
		RecoveryHint: recoveryHint,
		Details:      map[string]any{"resource_type": resourceType, "resource_id": resourceID},
	}
}

// ValidationErr builds a VALIDATION_ERROR.
func ValidationErr(message, recoveryHint string, details map[string]any) *Error {
	if details == nil {
		details = map[string]any{}
	}
	return &Error{Code: ValidationError, Message: message, RecoveryHint: recoveryHint, Details: details}
}

// SchemaValidationErr builds a SCHEMA_VALIDATION_ERROR carrying the full
// list of path-qualified validation messages.
func SchemaValidationErr(typeID string, errs []string, recoveryHint string) *Error {
	if recoveryHint == "" {
		kind := typeID
		if i := strings.IndexByte(typeID, '.'); i >= 0 {
			kind = typeID[:i]
		}
		recoveryHint = fmt.Sprintf("Browse the %s archetype catalog to see valid values, constraints, and examples.", kind)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Slot validation failed for archetype %q:\n", typeID)
	for _, e := range errs {
		fmt.Fprintf(&b, "  - %s\n", e)
	}
	return &Error{
		Code:         SchemaValidationError,
		Message:      strings.TrimRight(b.String(), "\n"),
		RecoveryHint: recoveryHint,
		Details:      map[string]any{"type_id": typeID, "validation_errors": errs},
	}
}

// SchemaEtagMismatchErr builds a SCHEMA_ETAG_MISMATCH error.
func SchemaEtagMismatchErr(provided, current string) *Error {
	return &Error{
		Code:         SchemaEtagMismatch,
		Message:      fmt.Sprintf("Schema ETag mismatch. Provided: %s, Current: %s.", provided, current),
		RecoveryHint: "Fetch the latest schema via get_archetype_schema before retrying.",
		Details:      map[string]any{"provided_etag": provided, "current_etag": current},
	}
}

// TransientErr builds a retryable DATABASE_ERROR/NETWORK_ERROR/TIMEOUT_ERROR.
func TransientErr(code Code, message string) *Error {
	if !strings.Contains(strings.ToLower(message), "try again") && !strings.Contains(strings.ToLower(message), "retry") {
		message += " Please try again."
	}
	return &Error{
		Code:         code,
		Message:      message,
		RecoveryHint: "This error may be transient. Please try again.",
		Details:      map[string]any{},
	}
}

// Internal builds a non-retryable INTERNAL_ERROR.
func Internal(message string) *Error {
	return &Error{
		Code:         InternalError,
		Message:      message,
		RecoveryHint: "This indicates a programming error; please report it.",
		Details:      map[string]any{},
	}
}

// InvalidRoleErr builds an INVALID_ROLE error for a rejected role string.
func InvalidRoleErr(role string) *Error {
	return &Error{
		Code:         InvalidRole,
		Message:      fmt.Sprintf("Invalid role %q: must be one of entry, gate, exit, overlay.", role),
		RecoveryHint: "Pass role=entry|gate|exit|overlay, or omit it to infer from the archetype kind.",
		Details:      map[string]any{"role": role},
	}
}
