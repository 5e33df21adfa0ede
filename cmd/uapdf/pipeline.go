package main

import (
	"context"
	"fmt"

	"github.com/alnah/go-uapdf"
)

// runPipelineCmd renders, then signs the result: the complete workflow.
// The unsigned rendering is kept when signing fails.
func runPipelineCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseRunFlags(args, env.Stderr)
	if err != nil {
		return usageError(err)
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: run takes at most one input, got %d", ErrUsage, len(positional))
	}

	cfg, err := loadConfig(flags.common, env)
	if err != nil {
		return withHint(err, nil, flags.common.config)
	}
	mergeRenderFlags(&flags.render, first(positional), cfg)
	mergeKeystoreFlags(&flags.keystore, cfg)
	mergeSignatureFlags(&flags.signature, cfg)
	if flags.signInput != "" {
		cfg.Signature.Input = flags.signInput
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	// Fail on descriptor and key store settings before starting a browser.
	descriptor, err := buildDescriptor(cfg, env.Now())
	if err != nil {
		return err
	}
	if cfg.Keystore.Path == "" {
		return fmt.Errorf("%w: no key store given (use --keystore or UAPDF_KEYSTORE)", ErrUsage)
	}
	for _, out := range []string{cfg.Render.Output, cfg.Signature.Output} {
		if err := checkOutputDir(out); err != nil {
			return withHint(err, cfg, flags.common.config)
		}
	}
	doc, err := buildDocument(cfg)
	if err != nil {
		return withHint(err, cfg, flags.common.config)
	}

	log := newLogger(env.Stderr, flags.common)
	opts, err := renderOptions(cfg, env, log)
	if err != nil {
		return err
	}
	r, err := env.NewRenderer(opts...)
	if err != nil {
		return withHint(err, cfg, flags.common.config)
	}

	source := passphraseSource(cfg)
	res, err := uapdf.Run(ctx, uapdf.Config{
		Document:     doc,
		RenderOutput: cfg.Render.Output,
		Keystore:     cfg.Keystore.Path,
		Passphrase: func() ([]byte, error) {
			return source.Resolve(env.Getenv, env.OpenKeyring)
		},
		SignInput:  cfg.Signature.Input,
		SignOutput: cfg.Signature.Output,
		Signature:  descriptor,
	}, append(opts, uapdf.WithRenderer(r))...)

	rendered := res != nil && res.Render != nil
	if rendered && !flags.common.quiet {
		printRenderResult(env, cfg.Render.Output, res.Render)
	}
	if err != nil {
		if rendered {
			log.Info().Str("unsigned", cfg.Render.Output).Msg("signing failed, unsigned PDF kept")
		}
		return withHint(err, cfg, flags.common.config)
	}
	if !flags.common.quiet {
		printSignResult(env, cfg.Signature.Output, res.Sign)
	}
	return nil
}
