package content

import "errors"

// ============================================================================
// Standard Content Store Errors
// ============================================================================

// These errors provide a consistent way to indicate failure conditions of the
// storage area. The host maps them to its own error codes; callers should
// check them with errors.Is since implementations wrap them with context:
//
//	data, err := store.Get(ctx, id)
//	if err != nil {
//	    if errors.Is(err, content.ErrContentNotFound) {
//	        return hostErrInexistentFile
//	    }
//	    return hostErrCannotReadFile
//	}
//
// Primary-path errors (NotFound, Exists, IOFailure, CorruptedFile,
// InvalidContentID) are returned to the host. Shadow-path errors
// (ExtractionFailure, LinkFailure, CrossDevice) never leave the engine; they
// are only logged and counted.

var (
	// ErrContentNotFound indicates the requested content does not exist.
	//
	// This error is returned when:
	//   - Get() called with an ID that was never stored or was deleted
	//   - Delete() called with an ID that has no primary file
	ErrContentNotFound = errors.New("content not found")

	// ErrContentExists indicates content with this ID already exists.
	//
	// Put has exclusive-create semantics: writing an existing ID never
	// overwrites the stored bytes.
	ErrContentExists = errors.New("content already exists")

	// ErrIOFailure indicates the underlying filesystem rejected an operation
	// on the primary store (disk full, permission denied, ...).
	ErrIOFailure = errors.New("storage I/O failure")

	// ErrCorruptedFile indicates a short read or short write on a primary
	// file. A partially written file is never left in place.
	ErrCorruptedFile = errors.New("corrupted file")

	// ErrInvalidContentID indicates the ID cannot be mapped to a primary
	// location (too short, or contains path separators).
	ErrInvalidContentID = errors.New("invalid content ID")

	// ErrExtractionFailure indicates metadata could not be extracted from
	// structured content. Non-fatal: the shadow link is skipped.
	ErrExtractionFailure = errors.New("metadata extraction failed")

	// ErrLinkFailure indicates a shadow link could not be created or removed.
	// Non-fatal: logged as a warning.
	ErrLinkFailure = errors.New("shadow link failure")

	// ErrCrossDevice indicates a hard link would cross a device boundary.
	// Handled transparently by falling back to a symbolic link.
	ErrCrossDevice = errors.New("cross-device link")
)
