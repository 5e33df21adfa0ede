// Package assets provides the sample documents bundled with the binary.
//
// Samples are embedded at compile time and used when no source document is
// configured. The default sample is a minimal HTML page that declares a
// custom font through @font-face, which makes it a smoke test for font
// registration, tagging and signing in one run.
//
//	samples/
//	├── ua-compliant.html   # default
//	└── report.md           # Markdown source
//
// Sample names are validated to prevent path traversal.
package assets
