package uapdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-uapdf/internal/fileutil"
	"github.com/alnah/go-uapdf/internal/fonts"
	"github.com/alnah/go-uapdf/internal/pdfua"
	"github.com/alnah/go-uapdf/internal/pipeline"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.HTMLConverter = (*pipeline.GoldmarkConverter)(nil)
	_ pipeline.CSSInjector   = (*pipeline.CSSInjection)(nil)
)

// Renderer turns a Document into a tagged PDF declaring PDF/UA-1.
// Create with NewRenderer and Close when done; a Renderer owns one browser
// and is not safe for concurrent use.
type Renderer struct {
	opts          options
	htmlConverter pipeline.HTMLConverter
	cssInjector   pipeline.CSSInjector
	pdfConverter  pdfConverter
}

// NewRenderer creates a Renderer. The browser starts on first use.
func NewRenderer(opts ...Option) (*Renderer, error) {
	o := newOptions(opts)
	if err := o.page.Validate(); err != nil {
		return nil, err
	}

	r := &Renderer{
		opts:          o,
		htmlConverter: pipeline.NewGoldmarkConverter(),
		cssInjector:   &pipeline.CSSInjection{},
		pdfConverter:  o.converter,
	}
	if r.pdfConverter == nil {
		r.pdfConverter = newRodConverter(o.timeout, o.logger)
	}
	return r, nil
}

// Close releases the browser and kills its process tree.
func (r *Renderer) Close() error {
	if r.pdfConverter != nil {
		return r.pdfConverter.Close()
	}
	return nil
}

// preparedHTML is markup ready for the browser.
type preparedHTML struct {
	html  string
	title string
	lang  string
	font  *fonts.Font
}

// Render renders doc and writes the finished PDF to w.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (r *Renderer) Render(ctx context.Context, doc Document, w io.Writer) (result *RenderResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("internal error: %v", rec)
		}
	}()

	if err := doc.validate(); err != nil {
		return nil, err
	}

	log := r.opts.logger
	prep, err := r.prepare(ctx, doc)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("title", prep.title).Str("lang", prep.lang).Msg("markup prepared")

	raw, err := r.pdfConverter.ToPDF(ctx, prep.html, r.opts.page)
	if err != nil {
		return nil, fmt.Errorf("converting to PDF: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: browser returned no data", ErrPDFGeneration)
	}
	log.Debug().Int("bytes", len(raw)).Msg("browser output")

	finished, err := pdfua.Finish(raw, pdfua.Info{
		Title:     prep.title,
		Lang:      prep.lang,
		Producer:  r.opts.producer,
		Creator:   r.opts.producer,
		CreatedAt: r.opts.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: finishing: %v", ErrPDFGeneration, err)
	}

	report, err := pdfua.Inspect(finished)
	if err != nil {
		return nil, fmt.Errorf("%w: inspecting output: %v", ErrPDFGeneration, err)
	}

	n, err := w.Write(finished)
	if err != nil {
		return nil, fmt.Errorf("%w: writing PDF: %v", ErrIO, err)
	}

	result = &RenderResult{
		Pages: report.Pages,
		Title: prep.title,
		Lang:  prep.lang,
		Size:  n,
	}
	if prep.font != nil {
		result.FontFamily = prep.font.Family
		result.FontEmbedded = true
	}
	log.Info().Int("pages", result.Pages).Int("bytes", n).Msg("rendered")
	return result, nil
}

// RenderFile renders doc to path atomically: on failure nothing is left
// at path and an existing file is kept.
func (r *Renderer) RenderFile(ctx context.Context, doc Document, path string) (*RenderResult, error) {
	var result *RenderResult
	err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		var err error
		result, err = r.Render(ctx, doc, w)
		return err
	})
	if err != nil {
		if !isLibraryError(err) {
			return nil, fmt.Errorf("%w: %v", ErrIO, err)
		}
		return nil, err
	}
	return result, nil
}

// prepare converts, annotates and rewrites the source markup.
func (r *Renderer) prepare(ctx context.Context, doc Document) (*preparedHTML, error) {
	htmlContent := doc.HTML
	fromMarkdown := strings.TrimSpace(htmlContent) == ""
	if fromMarkdown {
		var err error
		htmlContent, err = r.htmlConverter.ToHTML(ctx, doc.Markdown, pipeline.Meta{Title: doc.Title, Lang: doc.Lang})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %v", ErrHTMLConversion, err)
		}
	}

	meta, err := pipeline.ExtractMetadata(htmlContent)
	if err != nil {
		return nil, fmt.Errorf("%w: reading metadata: %v", ErrHTMLConversion, err)
	}
	if fromMarkdown && doc.Title == "" {
		// placeholder title from the converter; the first heading wins
		meta.Title = ""
	}

	prep := &preparedHTML{
		title: firstNonEmpty(doc.Title, meta.Title, meta.Heading, pipeline.DefaultTitle),
		lang:  firstNonEmpty(doc.Lang, meta.Lang, pipeline.DefaultLang),
	}
	if meta.Title == "" || meta.Lang == "" {
		r.opts.logger.Debug().
			Str("title", prep.title).
			Str("lang", prep.lang).
			Msg("markup lacks title or language, using fallbacks")
	}

	htmlContent, err = pipeline.ApplyMetadata(htmlContent, pipeline.Meta{Title: prep.title, Lang: prep.lang})
	if err != nil {
		return nil, fmt.Errorf("%w: setting metadata: %v", ErrHTMLConversion, err)
	}

	faces := fonts.ParseFaces(meta.Styles)
	var provider fonts.Provider
	if doc.FontPath != "" {
		font, err := r.registerFont(&provider, doc, faces)
		if err != nil {
			return nil, err
		}
		prep.font = font
	}
	if err := r.checkFaces(faces, provider.Fonts(), doc.BaseDir); err != nil {
		return nil, err
	}

	if doc.BaseDir != "" {
		htmlContent, err = pipeline.RewriteRelativePaths(htmlContent, doc.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("%w: rewriting paths: %v", ErrHTMLConversion, err)
		}
	}

	htmlContent = r.cssInjector.InjectCSS(ctx, htmlContent, provider.CSS())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prep.html = htmlContent
	return prep, nil
}

// registerFont adds doc.FontPath under the families the markup expects.
// Without strict fonts a failure is logged and rendering continues.
func (r *Renderer) registerFont(p *fonts.Provider, doc Document, faces []fonts.Face) (*fonts.Font, error) {
	aliases := fonts.FamiliesFor(faces, doc.FontPath)
	if doc.FontFamily != "" {
		aliases = append([]string{doc.FontFamily}, aliases...)
	}

	font, err := p.Add(doc.FontPath, aliases...)
	if err != nil {
		if r.opts.strictFonts {
			return nil, fmt.Errorf("%w: %v", ErrFontResolution, err)
		}
		r.opts.logger.Warn().Err(err).Str("font", doc.FontPath).Msg("font not registered, using fallback fonts")
		return nil, nil
	}

	r.opts.logger.Debug().
		Str("font", font.Path).
		Strs("families", font.Families()).
		Msg("font registered")
	return font, nil
}

// checkFaces reports @font-face rules whose family has no registered font and
// whose sources are local files that do not exist.
func (r *Renderer) checkFaces(faces []fonts.Face, registered []*fonts.Font, baseDir string) error {
	var missing []string
	for _, face := range faces {
		if hasFamily(registered, face.Family) || faceLoadable(face, baseDir) {
			continue
		}
		missing = append(missing, face.Family)
	}
	if len(missing) == 0 {
		return nil
	}
	if r.opts.strictFonts {
		return &UnresolvedFontsError{Families: missing}
	}
	r.opts.logger.Warn().Strs("families", missing).Msg("fonts unresolved, the browser will fall back")
	return nil
}

func hasFamily(registered []*fonts.Font, family string) bool {
	for _, f := range registered {
		for _, name := range f.Families() {
			if strings.EqualFold(name, family) {
				return true
			}
		}
	}
	return false
}

// faceLoadable reports whether any source of face can load: remote and
// absolute URLs are trusted, relative ones must exist under baseDir.
func faceLoadable(face fonts.Face, baseDir string) bool {
	for _, u := range face.URLs {
		resolved, ok := relativeFile(u, baseDir)
		if !ok {
			return true
		}
		if fileutil.FileExists(resolved) {
			return true
		}
	}
	return false
}

// relativeFile joins a relative reference to baseDir. ok is false for
// anything that is not a relative path.
func relativeFile(ref, baseDir string) (string, bool) {
	if ref == "" || strings.Contains(ref, ":") || strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, `\`) {
		return "", false
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if baseDir == "" {
		baseDir = "."
	}
	return filepath.Join(baseDir, filepath.FromSlash(ref)), true
}

// ReadDocument loads a source file. Files ending in .md or .markdown are
// treated as Markdown, anything else as HTML. BaseDir is the file's directory.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is user-provided
	if err != nil {
		return Document{}, fmt.Errorf("%w: reading %s: %v", ErrIO, path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrIO, err)
	}

	doc := Document{BaseDir: filepath.Dir(abs)}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		doc.Markdown = string(data)
	default:
		doc.HTML = string(data)
	}
	return doc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// isLibraryError reports whether err already carries one of this package's
// sentinels or a context error.
func isLibraryError(err error) bool {
	for _, target := range []error{
		ErrIO, ErrEmptyDocument, ErrInvalidDocument, ErrHTMLConversion,
		ErrFontResolution, ErrPDFGeneration, ErrBrowserConnect, ErrPageCreate,
		ErrPageLoad, ErrInvalidPageSize, ErrInvalidOrientation, ErrInvalidMargin,
		ErrAuthentication, ErrNotFound, ErrAmbiguousIdentity,
		ErrInvalidDescriptor, ErrSigning, ErrState,
		context.Canceled, context.DeadlineExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
