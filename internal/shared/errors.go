package shared

import "errors"

// Error kinds shared across modules. Handlers map these onto RFC7807
// responses via RespondError; services never swallow them.
var (
	// ErrNotFound indicates the requested record does not exist in the
	// caller's organization.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique constraint was violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrAccountMismatch indicates a referenced account is inactive or
	// belongs to another organization.
	ErrAccountMismatch = errors.New("account does not belong to organization or is inactive")
	// ErrOverpayment indicates applied payments would exceed the document total.
	ErrOverpayment = errors.New("payment exceeds document balance")
	// ErrDocumentVoid indicates an operation on a voided document.
	ErrDocumentVoid = errors.New("document is void")
	// ErrDocumentClosed indicates a payment or void against a terminal document.
	ErrDocumentClosed = errors.New("document is in a terminal state")
	// ErrTenantScope indicates data access was attempted without a
	// resolved organization.
	ErrTenantScope = errors.New("no organization selected")
	// ErrPermissionDenied indicates the role check failed.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnbalanced indicates a journal entry whose debits and credits differ.
	ErrUnbalanced = errors.New("journal entry debits and credits do not balance")
)
