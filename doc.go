// Package uapdf renders HTML or Markdown to an accessible PDF and signs it.
//
// # Quick Start
//
// Render a document, load a PKCS#12 identity and certify the result:
//
//	r, err := uapdf.NewRenderer()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	if _, err := r.RenderFile(ctx, uapdf.Document{HTML: page}, "unsigned.pdf"); err != nil {
//	    log.Fatal(err)
//	}
//
//	id, err := uapdf.LoadSigningIdentity("keystore.p12", passphrase)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	d := uapdf.DefaultSignatureDescriptor()
//	if _, err := uapdf.SignFile(ctx, "unsigned.pdf", "signed.pdf", id, d); err != nil {
//	    log.Fatal(err)
//	}
//
// Run does the same in one call from a Config.
//
// # Rendering
//
// Headless Chrome prints the markup with tagging and a document outline
// enabled. The output then receives one incremental update that declares
// PDF/UA-1: catalog version 1.7, /MarkInfo, /Lang, /ViewerPreferences with
// DisplayDocTitle and an XMP packet carrying pdfuaid:part. The title and
// language come from the markup, falling back to the first heading and "en".
//
// A font file given in Document.FontPath is embedded through an @font-face
// rule under the family names the markup's own @font-face rules expect.
// Without WithStrictFonts an unusable font is logged and rendering continues
// with the markup's fallback stack.
//
// # Signing
//
// Sign appends exactly one incremental update holding a signature field, its
// widget on the chosen page and a detached CMS signature. The bytes of the
// input are kept as they are, so tagging and earlier signatures survive.
// Certifying signatures add a DocMDP reference; a document can carry at most
// one.
//
// # Errors
//
// Every failure wraps one of the sentinel errors in errors.go, so callers
// can branch with errors.Is.
package uapdf
