package main

import (
	"errors"
	"io"

	flag "github.com/spf13/pflag"
)

// ErrUsage indicates invalid command-line arguments.
var ErrUsage = errors.New("invalid usage")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// pageFlags holds page layout flags.
type pageFlags struct {
	size        string
	orientation string
	margin      float64
}

// renderFlags holds flags of the render phase.
type renderFlags struct {
	markdown    string
	sample      string
	font        string
	fontFamily  string
	strictFonts bool
	title       string
	lang        string
	output      string
	timeout     string
	page        pageFlags
}

// keystoreFlags holds key store and passphrase flags.
type keystoreFlags struct {
	path           string
	passphrase     string
	passphraseEnv  string
	keyringService string
	keyringItem    string
}

// signatureFlags holds signature descriptor flags.
type signatureFlags struct {
	output          string
	name            string
	reason          string
	location        string
	contact         string
	fieldName       string
	alternativeName string
	page            int
	rect            []float64
	certification   string
	digest          string
}

// renderCmdFlags holds all flags for the render command.
type renderCmdFlags struct {
	common commonFlags
	render renderFlags
}

// signCmdFlags holds all flags for the sign command.
type signCmdFlags struct {
	common    commonFlags
	keystore  keystoreFlags
	signature signatureFlags
}

// runCmdFlags holds all flags for the run command.
type runCmdFlags struct {
	common    commonFlags
	render    renderFlags
	keystore  keystoreFlags
	signature signatureFlags
	signInput string
}

// verifyCmdFlags holds all flags for the verify command.
type verifyCmdFlags struct {
	common commonFlags
	json   bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
}

// addPageFlags adds page layout flags to a FlagSet.
func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVarP(&f.size, "page-size", "p", "", "page size: letter, a4, legal")
	fs.StringVar(&f.orientation, "orientation", "", "page orientation: portrait, landscape")
	fs.Float64Var(&f.margin, "margin", 0, "page margin in inches (0.25-3.0)")
}

// addRenderFlags adds render phase flags to a FlagSet.
func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.StringVar(&f.markdown, "markdown", "", "Markdown source instead of HTML")
	fs.StringVar(&f.sample, "sample", "", "embedded sample rendered when no input is given")
	fs.StringVarP(&f.font, "font", "f", "", "TrueType/OpenType font file to embed")
	fs.StringVar(&f.fontFamily, "font-family", "", "family name the markup uses for --font")
	fs.BoolVar(&f.strictFonts, "strict-fonts", false, "fail when a font cannot be resolved")
	fs.StringVar(&f.title, "title", "", "document title (\"\" = from <title> or first heading)")
	fs.StringVar(&f.lang, "lang", "", "document language (\"\" = from <html lang>)")
	fs.StringVarP(&f.output, "output", "o", "", "unsigned PDF path")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "page load timeout (e.g., 30s, 2m)")
	addPageFlags(fs, &f.page)
}

// addKeystoreFlags adds key store flags to a FlagSet.
func addKeystoreFlags(fs *flag.FlagSet, f *keystoreFlags) {
	fs.StringVarP(&f.path, "keystore", "k", "", "PKCS#12 key store (.p12/.pfx)")
	fs.StringVar(&f.passphrase, "passphrase", "", "key store passphrase (prefer the environment)")
	fs.StringVar(&f.passphraseEnv, "passphrase-env", "", "environment variable holding the passphrase")
	fs.StringVar(&f.keyringService, "keyring-service", "", "OS keyring service holding the passphrase")
	fs.StringVar(&f.keyringItem, "keyring-item", "", "OS keyring item holding the passphrase")
}

// addSignatureFlags adds signature flags to a FlagSet. The output flag is
// registered by the caller since run and sign name it differently.
func addSignatureFlags(fs *flag.FlagSet, f *signatureFlags) {
	fs.StringVar(&f.name, "signer-name", "", "signer name (\"\" = certificate common name)")
	fs.StringVar(&f.reason, "reason", "", "reason for signing")
	fs.StringVar(&f.location, "location", "", "signing location")
	fs.StringVar(&f.contact, "contact", "", "signer contact information")
	fs.StringVar(&f.fieldName, "field", "", "signature field name")
	fs.StringVar(&f.alternativeName, "field-description", "", "accessible field description")
	fs.IntVar(&f.page, "sig-page", 0, "page of the signature widget (0 = last)")
	fs.Float64SliceVar(&f.rect, "rect", nil, "widget rectangle in points: llx,lly,urx,ury")
	fs.StringVar(&f.certification, "certification", "", "not-certified, no-changes, form-filling, form-filling-and-annotations")
	fs.StringVar(&f.digest, "digest", "", "digest algorithm: sha256, sha384, sha512")
}

func newFlagSet(name string, usage func(io.Writer), stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	return fs
}

// parseRenderFlags parses render command flags and returns positional args.
func parseRenderFlags(args []string, stderr io.Writer) (*renderCmdFlags, []string, error) {
	fs := newFlagSet("render", printRenderUsage, stderr)
	f := &renderCmdFlags{}
	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseSignFlags parses sign command flags and returns positional args.
func parseSignFlags(args []string, stderr io.Writer) (*signCmdFlags, []string, error) {
	fs := newFlagSet("sign", printSignUsage, stderr)
	f := &signCmdFlags{}
	addCommonFlags(fs, &f.common)
	addKeystoreFlags(fs, &f.keystore)
	addSignatureFlags(fs, &f.signature)
	fs.StringVarP(&f.signature.output, "output", "o", "", "signed PDF path")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseRunFlags parses run command flags and returns positional args.
func parseRunFlags(args []string, stderr io.Writer) (*runCmdFlags, []string, error) {
	fs := newFlagSet("run", printRunUsage, stderr)
	f := &runCmdFlags{}
	addCommonFlags(fs, &f.common)
	addRenderFlags(fs, &f.render)
	addKeystoreFlags(fs, &f.keystore)
	addSignatureFlags(fs, &f.signature)
	fs.StringVarP(&f.signature.output, "signed-output", "s", "", "signed PDF path")
	fs.StringVar(&f.signInput, "sign-input", "", "PDF to sign instead of the rendered one")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseVerifyFlags parses verify command flags and returns positional args.
func parseVerifyFlags(args []string, stderr io.Writer) (*verifyCmdFlags, []string, error) {
	fs := newFlagSet("verify", printVerifyUsage, stderr)
	f := &verifyCmdFlags{}
	addCommonFlags(fs, &f.common)
	fs.BoolVar(&f.json, "json", false, "print the report as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// isHelp reports whether err is a -h/--help request.
func isHelp(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
