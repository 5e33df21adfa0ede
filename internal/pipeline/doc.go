// Package pipeline prepares HTML markup for the browser renderer.
//
// Stages, applied in order by the root uapdf package:
//   - Markdown to HTML conversion via Goldmark (optional source format)
//   - Metadata extraction and overrides (<title>, <html lang>)
//   - Resolution of relative references against the source directory,
//     including CSS url() values so local fonts keep loading
//   - Style injection (font registration rules)
//
// The package never touches PDF bytes. Rendering, tagging and finishing are
// handled by the root package and internal/pdfua.
package pipeline
