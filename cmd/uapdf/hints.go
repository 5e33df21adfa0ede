package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alnah/go-uapdf"
	"github.com/alnah/go-uapdf/internal/config"
	"github.com/alnah/go-uapdf/internal/hints"
	"github.com/alnah/go-uapdf/internal/keystore"
)

// withHint appends an actionable hint to err when one applies.
// The result still matches err with errors.Is.
func withHint(err error, cfg *config.Config, configName string) error {
	if err == nil {
		return nil
	}

	var (
		hint       string
		unresolved *uapdf.UnresolvedFontsError
	)
	switch {
	case errors.Is(err, uapdf.ErrBrowserConnect):
		hint = hints.ForBrowserConnect()
	case errors.Is(err, uapdf.ErrPageLoad), errors.Is(err, context.DeadlineExceeded):
		hint = hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		hint = hints.ForConfigNotFound(config.SearchedPaths(configName))
	case errors.As(err, &unresolved):
		hint = hints.ForUnresolvedFont(unresolved.Families)
	case errors.Is(err, uapdf.ErrFontResolution):
		hint = hints.ForFont()
	case errors.Is(err, keystore.ErrPassphrase):
		env := keystore.DefaultPassphraseEnv
		if cfg != nil && cfg.Keystore.PassphraseEnv != "" {
			env = cfg.Keystore.PassphraseEnv
		}
		hint = hints.ForPassphrase(env)
	case errors.Is(err, uapdf.ErrAuthentication):
		hint = hints.ForAuthentication()
	case errors.Is(err, uapdf.ErrNotFound), errors.Is(err, uapdf.ErrAmbiguousIdentity):
		hint = hints.ForIdentity()
	case errors.Is(err, uapdf.ErrState):
		hint = hints.ForState()
	case errors.Is(err, errOutputDirectory):
		hint = hints.ForOutputDirectory()
	}
	if hint == "" {
		return err
	}
	return fmt.Errorf("%w%s", err, hint)
}

var errOutputDirectory = errors.New("output directory does not exist")

// checkOutputDir fails early when the directory of path is missing, before
// any browser or key store work is done.
func checkOutputDir(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %w: %s", uapdf.ErrIO, errOutputDirectory, dir)
	}
	return nil
}
