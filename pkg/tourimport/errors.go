package tourimport

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrPageNotFound indicates a page was not found
	ErrPageNotFound = errors.New("page not found")

	// ErrCategoryNotFound indicates a category was not found
	ErrCategoryNotFound = errors.New("category not found")

	// ErrTourNotFound indicates a tour was not found
	ErrTourNotFound = errors.New("tour not found")

	// ErrImageNotFound indicates an image row was not found
	ErrImageNotFound = errors.New("image not found")

	// ErrObjectNotFound indicates a stored object was not found
	ErrObjectNotFound = errors.New("object not found")

	// ErrMissingIdentity indicates no slug could be derived for a record
	ErrMissingIdentity = errors.New("no slug or title to derive identity from")

	// ErrNotFoundAtSource indicates the source answered "does not exist";
	// this is a skip, not a failure, and is never retried
	ErrNotFoundAtSource = errors.New("resource not found at source")

	// ErrUnsupportedImage indicates corrupt bytes or an unsupported format
	ErrUnsupportedImage = errors.New("unsupported or corrupt image")

	// ErrImageTooLarge indicates a raw image exceeded the download cap
	ErrImageTooLarge = errors.New("image exceeds maximum allowed size")

	// ErrUploadFailed indicates an object store upload failed
	ErrUploadFailed = errors.New("upload failed")
)

// RecordError wraps a failure scoped to one input record.
type RecordError struct {
	Row      int
	Identity string
	Step     string
	Err      error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (%s): %s failed: %v", e.Row, e.Identity, e.Step, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// ScrapeError wraps a failure to retrieve normalized content for a URL.
type ScrapeError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape failed for %s: %s", e.URL, e.Reason)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// FetchError wraps a transient failure to download an image. Unlike
// ErrNotFoundAtSource it is retryable.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch failed for %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch failed for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StorageError wraps a blob store operation failure.
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// DatastoreError wraps a repository failure with the offending record
// identity so it can be logged and the run can continue.
type DatastoreError struct {
	Entity   string
	Identity string
	Op       string
	Err      error
}

func (e *DatastoreError) Error() string {
	return fmt.Sprintf("datastore operation %s failed for %s %q: %v", e.Op, e.Entity, e.Identity, e.Err)
}

func (e *DatastoreError) Unwrap() error {
	return e.Err
}
