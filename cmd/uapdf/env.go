package main

import (
	"io"
	"os"
	"time"

	"github.com/alnah/go-uapdf"
	"github.com/alnah/go-uapdf/internal/keystore"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, environment variables, the OS keyring and the browser.
type Environment struct {
	Now         func() time.Time
	Stdout      io.Writer
	Stderr      io.Writer
	Getenv      func(string) string
	OpenKeyring keystore.KeyringOpener
	NewRenderer func(opts ...uapdf.Option) (uapdf.DocumentRenderer, error)
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:         time.Now,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Getenv:      os.Getenv,
		OpenKeyring: keystore.OpenKeyring,
		NewRenderer: func(opts ...uapdf.Option) (uapdf.DocumentRenderer, error) {
			return uapdf.NewRenderer(opts...)
		},
	}
}
