package main

// Notes:
// - Shared test infrastructure for the command tests: a fake
//   uapdf.DocumentRenderer that writes a fixture PDF instead of starting
//   Chrome, an Environment with an injected clock and environment map, and a
//   PKCS#12 key store on disk.
// No coverage gaps: this is test infrastructure, not production code.

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-uapdf"
	"github.com/alnah/go-uapdf/internal/fixture"
)

// ---------------------------------------------------------------------------
// Fake renderer
// ---------------------------------------------------------------------------

// fakeRenderer implements uapdf.DocumentRenderer by writing a small tagged fixture PDF.
type fakeRenderer struct {
	mu     sync.Mutex
	err    error
	pages  int
	docs   []uapdf.Document
	opts   int
	closed bool
}

func (f *fakeRenderer) RenderFile(ctx context.Context, doc uapdf.Document, path string) (*uapdf.RenderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, doc)
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pages := f.pages
	if pages == 0 {
		pages = 2
	}
	data := fixture.Build(fixture.Options{Pages: pages, Tagged: true, Title: "Fixture"})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, err
	}
	return &uapdf.RenderResult{Pages: pages, Title: "Fixture", Lang: "en", Size: len(data)}, nil
}

func (f *fakeRenderer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// ---------------------------------------------------------------------------
// Environment
// ---------------------------------------------------------------------------

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

// testEnv returns an Environment with buffered output, a fixed clock and
// vars as the only environment variables.
func testEnv(r *fakeRenderer, vars map[string]string) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := &Environment{
		Now:    func() time.Time { return testNow },
		Stdout: &stdout,
		Stderr: &stderr,
		Getenv: func(k string) string { return vars[k] },
		NewRenderer: func(opts ...uapdf.Option) (uapdf.DocumentRenderer, error) {
			r.mu.Lock()
			r.opts = len(opts)
			r.mu.Unlock()
			return r, nil
		},
	}
	return env, &stdout, &stderr
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

const testPassphrase = "correct horse"

// writeKeystore writes an ECDSA key store protected by testPassphrase.
func writeKeystore(t *testing.T, dir string) string {
	t.Helper()
	chain := fixture.NewChain(t, fixture.ECDSA, "Jane Author")
	path := filepath.Join(dir, "signer.p12")
	if err := os.WriteFile(path, fixture.PKCS12(t, chain, testPassphrase), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// writePDF writes an unsigned tagged fixture PDF.
func writePDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, fixture.Build(fixture.Options{Pages: pages, Tagged: true}), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// passphraseVars supplies the passphrase through the default variable.
func passphraseVars() map[string]string {
	return map[string]string{"UAPDF_KEYSTORE_PASSPHRASE": testPassphrase}
}
