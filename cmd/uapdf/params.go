package main

import (
	"crypto"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-uapdf"
	"github.com/alnah/go-uapdf/internal/assets"
	"github.com/alnah/go-uapdf/internal/config"
	"github.com/alnah/go-uapdf/internal/keystore"
)

// configEnv names the environment variable that selects a config file.
const configEnv = "UAPDF_CONFIG"

// loadConfig loads the config named by --config or UAPDF_CONFIG, then applies
// environment overrides. Precedence: flags > environment > file > defaults.
func loadConfig(f commonFlags, env *Environment) (*config.Config, error) {
	name := f.config
	if name == "" {
		name = env.Getenv(configEnv)
	}

	cfg := config.DefaultConfig()
	if name != "" {
		var err error
		cfg, err = config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	cfg.ApplyEnv(env.Getenv)
	return cfg, nil
}

// mergeRenderFlags applies render flags over cfg. input is the positional
// source path, if any; its extension decides between HTML and Markdown.
func mergeRenderFlags(f *renderFlags, input string, cfg *config.Config) {
	switch {
	case f.markdown != "":
		cfg.Render.Markdown, cfg.Render.HTML = f.markdown, ""
	case input != "" && isMarkdownPath(input):
		cfg.Render.Markdown, cfg.Render.HTML = input, ""
	case input != "":
		cfg.Render.HTML, cfg.Render.Markdown = input, ""
	}
	if f.sample != "" {
		cfg.Render.Sample = f.sample
	}
	if f.font != "" {
		cfg.Render.Font = f.font
	}
	if f.fontFamily != "" {
		cfg.Render.FontFamily = f.fontFamily
	}
	if f.strictFonts {
		cfg.Render.StrictFonts = true
	}
	if f.title != "" {
		cfg.Render.Title = f.title
	}
	if f.lang != "" {
		cfg.Render.Lang = f.lang
	}
	if f.output != "" {
		cfg.Render.Output = f.output
	}
	if f.timeout != "" {
		cfg.Render.Timeout = f.timeout
	}
	if f.page.size != "" {
		cfg.Render.Page.Size = f.page.size
	}
	if f.page.orientation != "" {
		cfg.Render.Page.Orientation = f.page.orientation
	}
	if f.page.margin != 0 {
		cfg.Render.Page.Margin = f.page.margin
	}
}

// mergeKeystoreFlags applies key store flags over cfg.
func mergeKeystoreFlags(f *keystoreFlags, cfg *config.Config) {
	if f.path != "" {
		cfg.Keystore.Path = f.path
	}
	if f.passphrase != "" {
		cfg.Keystore.Passphrase = f.passphrase
	}
	if f.passphraseEnv != "" {
		cfg.Keystore.PassphraseEnv = f.passphraseEnv
	}
	if f.keyringService != "" {
		cfg.Keystore.KeyringService = f.keyringService
	}
	if f.keyringItem != "" {
		cfg.Keystore.KeyringItem = f.keyringItem
	}
}

// mergeSignatureFlags applies signature flags over cfg.
func mergeSignatureFlags(f *signatureFlags, cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Signature.Output, f.output)
	set(&cfg.Signature.Name, f.name)
	set(&cfg.Signature.Reason, f.reason)
	set(&cfg.Signature.Location, f.location)
	set(&cfg.Signature.ContactInfo, f.contact)
	set(&cfg.Signature.FieldName, f.fieldName)
	set(&cfg.Signature.AlternativeName, f.alternativeName)
	set(&cfg.Signature.Certification, f.certification)
	set(&cfg.Signature.Digest, f.digest)
	if f.page != 0 {
		cfg.Signature.Page = f.page
	}
	if len(f.rect) != 0 {
		cfg.Signature.Rect = f.rect
	}
}

func isMarkdownPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}

// buildDocument reads the configured source, or the embedded sample when
// none is configured. The sample resolves relative references against the
// working directory.
func buildDocument(cfg *config.Config) (uapdf.Document, error) {
	var (
		doc uapdf.Document
		err error
	)
	switch {
	case cfg.Render.Markdown != "":
		doc, err = uapdf.ReadDocument(cfg.Render.Markdown)
		if err == nil && doc.Markdown == "" {
			doc.Markdown, doc.HTML = doc.HTML, ""
		}
	case cfg.Render.HTML != "":
		doc, err = uapdf.ReadDocument(cfg.Render.HTML)
	default:
		doc, err = sampleDocument(cfg.Render.Sample)
	}
	if err != nil {
		return uapdf.Document{}, err
	}

	doc.FontPath = cfg.Render.Font
	doc.FontFamily = cfg.Render.FontFamily
	doc.Title = cfg.Render.Title
	doc.Lang = cfg.Render.Lang
	return doc, nil
}

func sampleDocument(name string) (uapdf.Document, error) {
	if name == "" {
		name = assets.DefaultSampleName
	}
	sample, err := assets.LoadSample(name)
	if err != nil {
		return uapdf.Document{}, fmt.Errorf("%w: %v (available: %s)",
			ErrUsage, err, strings.Join(assets.SampleNames(), ", "))
	}
	wd, err := os.Getwd()
	if err != nil {
		return uapdf.Document{}, fmt.Errorf("%w: %v", uapdf.ErrIO, err)
	}

	doc := uapdf.Document{BaseDir: wd}
	if sample.Format == assets.FormatMarkdown {
		doc.Markdown = sample.Content
	} else {
		doc.HTML = sample.Content
	}
	return doc, nil
}

// buildPageSettings fills unset page values with the library defaults.
func buildPageSettings(cfg *config.Config) (*uapdf.PageSettings, error) {
	page := uapdf.DefaultPageSettings()
	if cfg.Render.Page.Size != "" {
		page.Size = strings.ToLower(cfg.Render.Page.Size)
	}
	if cfg.Render.Page.Orientation != "" {
		page.Orientation = strings.ToLower(cfg.Render.Page.Orientation)
	}
	if cfg.Render.Page.Margin != 0 {
		page.Margin = cfg.Render.Page.Margin
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return page, nil
}

// renderOptions builds library options from cfg.
func renderOptions(cfg *config.Config, env *Environment, log zerolog.Logger) ([]uapdf.Option, error) {
	page, err := buildPageSettings(cfg)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.Render.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	opts := []uapdf.Option{
		uapdf.WithLogger(log),
		uapdf.WithPage(page),
		uapdf.WithStrictFonts(cfg.Render.StrictFonts),
		uapdf.WithProducer("go-uapdf " + Version),
		uapdf.WithClock(env.Now),
	}
	if timeout > 0 {
		opts = append(opts, uapdf.WithTimeout(timeout))
	}
	return opts, nil
}

// buildDescriptor converts the signature section of cfg.
func buildDescriptor(cfg *config.Config, now time.Time) (uapdf.SignatureDescriptor, error) {
	s := cfg.Signature
	d := uapdf.SignatureDescriptor{
		Name:            s.Name,
		Reason:          s.Reason,
		Location:        s.Location,
		ContactInfo:     s.ContactInfo,
		FieldName:       s.FieldName,
		AlternativeName: s.AlternativeName,
		Page:            s.Page,
		SigningTime:     now,
	}

	switch len(s.Rect) {
	case 0:
		d.Rect = uapdf.DefaultRect
	case 4:
		copy(d.Rect[:], s.Rect)
	default:
		return d, fmt.Errorf("%w: rectangle needs 4 numbers, got %d", uapdf.ErrInvalidDescriptor, len(s.Rect))
	}

	level := s.Certification
	if level == "" {
		level = config.DefaultCertLevel
	}
	cert, ok := uapdf.ParseCertificationLevel(strings.ToLower(level))
	if !ok {
		return d, fmt.Errorf("%w: unknown certification level %q", uapdf.ErrInvalidDescriptor, s.Certification)
	}
	d.Certification = cert

	switch strings.ToLower(s.Digest) {
	case "", "sha256":
		d.Digest = crypto.SHA256
	case "sha384":
		d.Digest = crypto.SHA384
	case "sha512":
		d.Digest = crypto.SHA512
	default:
		return d, fmt.Errorf("%w: unknown digest %q", uapdf.ErrInvalidDescriptor, s.Digest)
	}

	return d, d.Validate()
}

// passphraseSource converts the key store section of cfg.
func passphraseSource(cfg *config.Config) keystore.Passphrase {
	return keystore.Passphrase{
		Literal:        cfg.Keystore.Passphrase,
		KeyringService: cfg.Keystore.KeyringService,
		KeyringItem:    cfg.Keystore.KeyringItem,
		Env:            cfg.Keystore.PassphraseEnv,
	}
}

// loadIdentity resolves the passphrase and opens the key store. The
// passphrase is zeroed before returning.
func loadIdentity(cfg *config.Config, env *Environment) (*uapdf.Identity, error) {
	if cfg.Keystore.Path == "" {
		return nil, fmt.Errorf("%w: no key store given (use --keystore or UAPDF_KEYSTORE)", ErrUsage)
	}

	secret, err := passphraseSource(cfg).Resolve(env.Getenv, env.OpenKeyring)
	if err != nil {
		return nil, err
	}
	defer keystore.Zeroize(secret)

	return uapdf.LoadSigningIdentity(cfg.Keystore.Path, secret)
}
