package entity

import "errors"

// Domain errors
var (
	// User errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserNotRegistered = errors.New("user is not registered")
	ErrForbidden         = errors.New("operation is not allowed for this role")

	// Catalog errors
	ErrStepNotFound          = errors.New("step not found")
	ErrInvalidStepType       = errors.New("invalid step type")
	ErrInvalidCollectionFlow = errors.New("invalid collection flow")
	ErrEmptyCatalog          = errors.New("step catalog is empty")

	// Submission errors
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrTerminalStatus     = errors.New("submission already has a terminal status")
	ErrInvalidStatus      = errors.New("invalid submission status")
	ErrInvalidScore       = errors.New("invalid score")
	ErrNoSubmissions      = errors.New("no submissions for user")

	// Session errors
	ErrSessionNotFound = errors.New("session state not found")
	ErrSessionExpired  = errors.New("session state does not match the expected step")

	// File errors
	ErrInvalidFile      = errors.New("invalid file")
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidExtension = errors.New("invalid file extension")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")
)
