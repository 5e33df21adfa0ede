package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/alnah/go-uapdf"
	"github.com/alnah/go-uapdf/internal/config"
)

// runSignCmd signs an existing PDF with the configured key store.
func runSignCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseSignFlags(args, env.Stderr)
	if err != nil {
		return usageError(err)
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: sign takes at most one input, got %d", ErrUsage, len(positional))
	}

	cfg, err := loadConfig(flags.common, env)
	if err != nil {
		return withHint(err, nil, flags.common.config)
	}
	mergeKeystoreFlags(&flags.keystore, cfg)
	mergeSignatureFlags(&flags.signature, cfg)
	if in := first(positional); in != "" {
		cfg.Signature.Input = in
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(env.Stderr, flags.common)
	res, err := signPhase(ctx, cfg, env, log)
	if err != nil {
		return withHint(err, cfg, flags.common.config)
	}

	if !flags.common.quiet {
		printSignResult(env, cfg.Signature.Output, res)
	}
	return nil
}

// signPhase signs cfg.SignInput() into cfg.Signature.Output.
func signPhase(ctx context.Context, cfg *config.Config, env *Environment, log zerolog.Logger) (*uapdf.SignResult, error) {
	if err := checkOutputDir(cfg.Signature.Output); err != nil {
		return nil, err
	}
	d, err := buildDescriptor(cfg, env.Now())
	if err != nil {
		return nil, err
	}

	id, err := loadIdentity(cfg, env)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("alias", id.Alias).Int("chain", len(id.Chain)).Msg("identity loaded")

	in := cfg.SignInput()
	log.Debug().Str("input", in).Str("output", cfg.Signature.Output).Msg("signing")
	return uapdf.SignFile(ctx, in, cfg.Signature.Output, id, d, uapdf.WithLogger(log), uapdf.WithClock(env.Now))
}

func printSignResult(env *Environment, path string, res *uapdf.SignResult) {
	fmt.Fprintf(env.Stdout, "signed %s: field %q on page %d, %s, signer %s\n",
		path, res.FieldName, res.Page, res.Certification, res.Signer)
}
