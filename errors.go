package dezoomify

import "fmt"

// DezoomerError is the error taxonomy a Dezoomer can return from Step.
// NeedsData is cooperative suspension and is handled by the registry; it
// never surfaces past it. WrongDezoomer tells the registry to move on to the
// next driver, keeping the reason in AutoDezoomerError. DownloadError and Other propagate as fatal for that
// driver's attempt.
type DezoomerError struct {
	Kind    DezoomerErrorKind
	URI     string // set when Kind == NeedsData
	Name    string // set when Kind == WrongDezoomer
	Message string // set when Kind == DownloadErr
	Cause   error  // set when Kind == Other
}

type DezoomerErrorKind int

const (
	NeedsData DezoomerErrorKind = iota
	WrongDezoomer
	DownloadErr
	Other
)

func (e *DezoomerError) Error() string {
	switch e.Kind {
	case NeedsData:
		return fmt.Sprintf("need to download data from %s", e.URI)
	case WrongDezoomer:
		return fmt.Sprintf("the '%s' dezoomer cannot handle this input", e.Name)
	case DownloadErr:
		return fmt.Sprintf("unable to download required data: %s", e.Message)
	case Other:
		if e.Cause != nil {
			return fmt.Sprintf("unable to create the dezoomer: %s", e.Cause)
		}
		return "unable to create the dezoomer"
	default:
		return "unknown dezoomer error"
	}
}

func (e *DezoomerError) Unwrap() error { return e.Cause }

// NeedsDataErr builds a DezoomerError requesting a fetch of uri.
func NeedsDataErr(uri string) *DezoomerError {
	return &DezoomerError{Kind: NeedsData, URI: uri}
}

// WrongDezoomerErr signals that name's driver clearly does not match the input.
func WrongDezoomerErr(name string) *DezoomerError {
	return &DezoomerError{Kind: WrongDezoomer, Name: name}
}

// DownloadErrorErr signals that a prerequisite fetch was malformed.
func DownloadErrorErr(msg string) *DezoomerError {
	return &DezoomerError{Kind: DownloadErr, Message: msg}
}

// WrapDezoomerErr wraps an arbitrary error as DezoomerError.Other.
func WrapDezoomerErr(err error) *DezoomerError {
	return &DezoomerError{Kind: Other, Cause: err}
}

// ZoomError is the top-level fatal error taxonomy for a single dezoomify run.
type ZoomError struct {
	Kind    ZoomErrorKind
	Message string
	Cause   error

	// PartialDownload fields
	SuccessfulTiles uint64
	TotalTiles      uint64
	Destination     string
}

type ZoomErrorKind int

const (
	ErrNoLevels ZoomErrorKind = iota
	ErrNoTile
	ErrPartialDownload
	ErrNoBulkURL
	ErrNoSuchDezoomer
	ErrNetworking
	ErrIO
	ErrDecode
	ErrPostProcessing
	ErrTileCopy
	ErrOther
)

func (e *ZoomError) Error() string {
	switch e.Kind {
	case ErrNoLevels:
		return "a zoomable image was found, but it did not contain any zoom level"
	case ErrNoTile:
		return "could not get any tile for the image"
	case ErrPartialDownload:
		return fmt.Sprintf(
			"only %d tiles out of %d could be downloaded. The resulting image was still created in '%s'",
			e.SuccessfulTiles, e.TotalTiles, e.Destination,
		)
	case ErrNoBulkURL:
		return fmt.Sprintf("no url found in bulk file %s", e.Message)
	case ErrNoSuchDezoomer:
		return fmt.Sprintf("no such dezoomer: %s", e.Message)
	case ErrTileCopy:
		return fmt.Sprintf("could not place tile on canvas: %s", e.Message)
	default:
		if e.Cause != nil {
			if e.Message != "" {
				return fmt.Sprintf("%s: %s", e.Message, e.Cause)
			}
			return e.Cause.Error()
		}
		return e.Message
	}
}

func (e *ZoomError) Unwrap() error { return e.Cause }

// IsPartialDownload reports whether err is (or wraps) a partial-download outcome.
func IsPartialDownload(err error) (*ZoomError, bool) {
	var ze *ZoomError
	if as(err, &ze) && ze.Kind == ErrPartialDownload {
		return ze, true
	}
	return nil, false
}

func as(err error, target **ZoomError) bool {
	for err != nil {
		if ze, ok := err.(*ZoomError); ok {
			*target = ze
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// TileDownloadError reports the failure of a single tile fetch/decode.
type TileDownloadError struct {
	TileReference TileReference
	Cause         error
}

func (e *TileDownloadError) Error() string {
	return fmt.Sprintf("unable to download tile '%s': %s", e.TileReference.URL, e.Cause)
}

func (e *TileDownloadError) Unwrap() error { return e.Cause }
