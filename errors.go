package uapdf

import (
	"errors"
	"strings"
)

// Sentinel errors for library operations.
var (
	// Input and output.
	ErrIO              = errors.New("I/O failure")
	ErrEmptyDocument   = errors.New("document has no HTML or Markdown content")
	ErrInvalidDocument = errors.New("invalid document")
	ErrHTMLConversion  = errors.New("HTML conversion failed")

	// Rendering.
	ErrFontResolution = errors.New("font could not be resolved")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")

	// Page settings validation errors.
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidMargin      = errors.New("invalid margin")

	// Key store.
	ErrAuthentication    = errors.New("key store authentication failed")
	ErrNotFound          = errors.New("not found")
	ErrAmbiguousIdentity = errors.New("key store holds more than one signing identity")

	// Signing.
	ErrInvalidDescriptor = errors.New("invalid signature descriptor")
	ErrSigning           = errors.New("signing failed")
	ErrState             = errors.New("document state does not allow this signature")
)

// UnresolvedFontsError lists @font-face families that no font file serves.
// It matches ErrFontResolution with errors.Is.
type UnresolvedFontsError struct {
	Families []string
}

func (e *UnresolvedFontsError) Error() string {
	return ErrFontResolution.Error() + ": no font file for " + strings.Join(e.Families, ", ")
}

func (e *UnresolvedFontsError) Unwrap() error {
	return ErrFontResolution
}
