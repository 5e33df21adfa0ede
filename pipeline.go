package uapdf

import (
	"context"
	"fmt"

	"github.com/alnah/go-uapdf/internal/keystore"
)

// PassphraseFunc supplies the key store passphrase. Run zeroes the returned
// slice once the key store is decoded.
type PassphraseFunc func() ([]byte, error)

// Config describes one render-then-sign run.
type Config struct {
	Document     Document
	RenderOutput string // unsigned PDF path

	Keystore   string // PKCS#12 path
	Passphrase PassphraseFunc

	// SignInput is the PDF to sign. Empty signs RenderOutput.
	SignInput  string
	SignOutput string
	Signature  SignatureDescriptor
}

// Result reports both phases of a Run.
type Result struct {
	Render *RenderResult
	Sign   *SignResult
	Signer string // identity alias
}

func (c *Config) validate() error {
	if c.RenderOutput == "" {
		return fmt.Errorf("%w: no render output path", ErrIO)
	}
	if c.SignOutput == "" {
		return fmt.Errorf("%w: no signed output path", ErrIO)
	}
	if c.Keystore == "" {
		return fmt.Errorf("%w: no key store configured", ErrNotFound)
	}
	return c.Signature.Validate()
}

// Run renders cfg.Document to cfg.RenderOutput, loads the signing identity
// and signs into cfg.SignOutput. The phases run strictly in order and the
// first failure ends the run; files written by completed phases are kept.
func Run(ctx context.Context, cfg Config, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	log := o.logger

	if err := cfg.validate(); err != nil {
		if o.renderer != nil {
			_ = o.renderer.Close()
		}
		return nil, err
	}

	r := o.renderer
	if r == nil {
		nr, err := NewRenderer(opts...)
		if err != nil {
			return nil, err
		}
		r = nr
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Warn().Err(err).Msg("closing browser")
		}
	}()

	log.Debug().Str("output", cfg.RenderOutput).Msg("render phase")
	rendered, err := r.RenderFile(ctx, cfg.Document, cfg.RenderOutput)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("keystore", cfg.Keystore).Msg("loading signing identity")
	id, err := loadWithPassphrase(cfg.Keystore, cfg.Passphrase)
	if err != nil {
		return &Result{Render: rendered}, err
	}
	log.Debug().Str("alias", id.Alias).Int("chain", len(id.Chain)).Msg("identity loaded")

	input := cfg.SignInput
	if input == "" {
		input = cfg.RenderOutput
	}
	log.Debug().Str("input", input).Str("output", cfg.SignOutput).Msg("sign phase")
	signed, err := SignFile(ctx, input, cfg.SignOutput, id, cfg.Signature, opts...)
	if err != nil {
		return &Result{Render: rendered, Signer: id.Alias}, err
	}

	return &Result{Render: rendered, Sign: signed, Signer: id.Alias}, nil
}

func loadWithPassphrase(path string, pass PassphraseFunc) (*Identity, error) {
	var secret []byte
	if pass != nil {
		var err error
		secret, err = pass()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
	}
	defer keystore.Zeroize(secret)
	return LoadSigningIdentity(path, secret)
}
