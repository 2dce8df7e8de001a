package entry

import (
	"errors"
	"fmt"
)

// ErrMissingAssetURL is returned when an API object carries neither of the
// two image URL fields.
var ErrMissingAssetURL = errors.New("entry has no asset URL")

// ErrUnsupportedAsset is returned when a displayable image cannot be
// resolved for an asset's media type.
var ErrUnsupportedAsset = errors.New("unsupported asset type")

// InvalidVideoReferenceError is returned when a video asset's identifier
// cannot be turned into a thumbnail request.
type InvalidVideoReferenceError struct {
	ID string
}

func (e *InvalidVideoReferenceError) Error() string {
	return fmt.Sprintf("invalid video reference %q", e.ID)
}

// InvalidImageError is returned when downloaded bytes do not decode as an
// image. It guards the store against persisting corrupt partial downloads.
type InvalidImageError struct {
	Err error
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("invalid image data: %v", e.Err)
}

func (e *InvalidImageError) Unwrap() error { return e.Err }
