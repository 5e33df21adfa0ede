package main

import (
	"context"
	"errors"
	"os"

	"github.com/alnah/go-uapdf"
	"github.com/alnah/go-uapdf/internal/config"
	"github.com/alnah/go-uapdf/internal/keystore"
)

// Exit codes for the uapdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // Command completed
	ExitGeneral  = 1 // General/unexpected error
	ExitUsage    = 2 // Invalid flags, config, or validation
	ExitIO       = 3 // File not found, permission denied
	ExitBrowser  = 4 // Browser/Chrome errors
	ExitKeystore = 5 // Key store cannot be opened or holds no usable identity
	ExitSigning  = 6 // Signing failed or the document state forbids it
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, uapdf.ErrBrowserConnect) ||
		errors.Is(err, uapdf.ErrPageCreate) ||
		errors.Is(err, uapdf.ErrPageLoad) ||
		errors.Is(err, uapdf.ErrPDFGeneration) ||
		errors.Is(err, context.DeadlineExceeded) {
		return ExitBrowser
	}

	// Key store errors (exit 5)
	if errors.Is(err, uapdf.ErrAuthentication) ||
		errors.Is(err, uapdf.ErrNotFound) ||
		errors.Is(err, uapdf.ErrAmbiguousIdentity) ||
		errors.Is(err, keystore.ErrPassphrase) {
		return ExitKeystore
	}

	// Signing errors (exit 6)
	if errors.Is(err, uapdf.ErrSigning) ||
		errors.Is(err, uapdf.ErrState) {
		return ExitSigning
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, uapdf.ErrIO) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, uapdf.ErrEmptyDocument) ||
		errors.Is(err, uapdf.ErrInvalidDocument) ||
		errors.Is(err, uapdf.ErrFontResolution) ||
		errors.Is(err, uapdf.ErrInvalidPageSize) ||
		errors.Is(err, uapdf.ErrInvalidOrientation) ||
		errors.Is(err, uapdf.ErrInvalidMargin) ||
		errors.Is(err, uapdf.ErrInvalidDescriptor) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	return ExitGeneral
}
