package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/alnah/go-uapdf"
	"github.com/alnah/go-uapdf/internal/config"
)

// runRenderCmd renders the source to an unsigned, tagged PDF.
func runRenderCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseRenderFlags(args, env.Stderr)
	if err != nil {
		return usageError(err)
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: render takes at most one input, got %d", ErrUsage, len(positional))
	}

	cfg, err := loadConfig(flags.common, env)
	if err != nil {
		return withHint(err, nil, flags.common.config)
	}
	mergeRenderFlags(&flags.render, first(positional), cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(env.Stderr, flags.common)
	res, err := renderPhase(ctx, cfg, env, log)
	if err != nil {
		return withHint(err, cfg, flags.common.config)
	}

	if !flags.common.quiet {
		printRenderResult(env, cfg.Render.Output, res)
	}
	return nil
}

// renderPhase renders the configured document to cfg.Render.Output.
func renderPhase(ctx context.Context, cfg *config.Config, env *Environment, log zerolog.Logger) (*uapdf.RenderResult, error) {
	if err := checkOutputDir(cfg.Render.Output); err != nil {
		return nil, err
	}
	doc, err := buildDocument(cfg)
	if err != nil {
		return nil, err
	}
	opts, err := renderOptions(cfg, env, log)
	if err != nil {
		return nil, err
	}

	r, err := env.NewRenderer(opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Warn().Err(err).Msg("closing browser")
		}
	}()

	log.Debug().Str("output", cfg.Render.Output).Msg("rendering")
	return r.RenderFile(ctx, doc, cfg.Render.Output)
}

func printRenderResult(env *Environment, path string, res *uapdf.RenderResult) {
	font := "browser fallback"
	if res.FontEmbedded {
		font = res.FontFamily
	}
	fmt.Fprintf(env.Stdout, "rendered %s: %d page(s), title %q, lang %s, font %s\n",
		path, res.Pages, res.Title, res.Lang, font)
}

func first(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// usageError marks flag parsing failures as usage errors. Help requests
// pass through unchanged.
func usageError(err error) error {
	if isHelp(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}
