package ingest

import "fmt"

// ValidationKind identifies which upload constraint was violated.
type ValidationKind int

const (
	KindNoFile ValidationKind = iota + 1
	KindTooManyFiles
	KindTypeNotAllowed
	KindTooLarge
)

func (k ValidationKind) String() string {
	switch k {
	case KindNoFile:
		return "no_file"
	case KindTooManyFiles:
		return "too_many_files"
	case KindTypeNotAllowed:
		return "type_not_allowed"
	case KindTooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

// ValidationError is returned before anything is staged.
type ValidationError struct {
	Kind     ValidationKind
	Field    string
	MimeType string
	Size     int64
	Limit    int64
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindNoFile:
		return fmt.Sprintf("no file under field %q", e.Field)
	case KindTooManyFiles:
		return fmt.Sprintf("expected one file, got %d", e.Size)
	case KindTypeNotAllowed:
		return fmt.Sprintf("content type %q is not allowed", e.MimeType)
	case KindTooLarge:
		return fmt.Sprintf("file of %d bytes exceeds limit of %d bytes", e.Size, e.Limit)
	default:
		return "invalid upload"
	}
}

// StagingError means the file could not be written to transient storage.
// Nothing is left behind when it is returned.
type StagingError struct {
	Err error
}

func (e *StagingError) Error() string { return "stage upload: " + e.Err.Error() }
func (e *StagingError) Unwrap() error { return e.Err }

// TransferError means the remote provider rejected or failed the upload.
// The staged artifact has already been released when it is returned.
type TransferError struct {
	Err error
}

func (e *TransferError) Error() string { return "transfer upload: " + e.Err.Error() }
func (e *TransferError) Unwrap() error { return e.Err }

// CleanupError is logged when a staged artifact cannot be deleted. It never
// replaces the outcome of the request.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("release staged upload %s: %v", e.Path, e.Err)
}
func (e *CleanupError) Unwrap() error { return e.Err }
