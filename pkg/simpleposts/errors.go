package simpleposts

import (
	"errors"
	"fmt"
)

// Validation errors. Requests failing with one of these are rejected before
// any media is mutated.
var (
	// ErrInvalidRequest indicates a malformed create or update request
	ErrInvalidRequest = errors.New("invalid request")

	// ErrDuplicateKeys indicates the same file key was submitted more than once
	ErrDuplicateKeys = errors.New("duplicate file uploads found")

	// ErrMissingFiles indicates some submitted file keys have no uploaded file
	ErrMissingFiles = errors.New("unable to find all uploaded files")

	// ErrFileAlreadyClaimed indicates a submitted file is used by another post
	ErrFileAlreadyClaimed = errors.New("uploaded file is already used")

	// ErrTooManyFiles indicates more files than the category accepts
	ErrTooManyFiles = errors.New("too many files for category")

	// ErrFileRequired indicates an upload without a file
	ErrFileRequired = errors.New("file is required")
)

// Not-found errors.
var (
	// ErrPostNotFound indicates a post was not found
	ErrPostNotFound = errors.New("post not found")

	// ErrCoverFileNotFound indicates the requested cover file was not uploaded
	ErrCoverFileNotFound = errors.New("unable to find cover file")

	// ErrMediaNotFound indicates a media resource was not found
	ErrMediaNotFound = errors.New("media resource not found")

	// ErrObjectNotFound indicates a blob store has no object under the key
	ErrObjectNotFound = errors.New("object not found")
)

var validationErrors = []error{
	ErrInvalidRequest,
	ErrDuplicateKeys,
	ErrMissingFiles,
	ErrFileAlreadyClaimed,
	ErrTooManyFiles,
	ErrFileRequired,
}

var notFoundErrors = []error{
	ErrPostNotFound,
	ErrCoverFileNotFound,
	ErrMediaNotFound,
	ErrObjectNotFound,
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// PostError represents an error related to post operations
type PostError struct {
	PostID string
	Op     string
	Err    error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("post operation %s failed for post %s: %v", e.Op, e.PostID, e.Err)
}

func (e *PostError) Unwrap() error {
	return e.Err
}

// MediaError represents an error related to media operations
type MediaError struct {
	Category string
	Keys     []string
	Op       string
	Err      error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media operation %s failed for %s %v: %v", e.Op, e.Category, e.Keys, e.Err)
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// ValidationError carries a field-level reason for ErrInvalidRequest.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}
