// Package pdfua finishes tagged PDFs produced by the browser so they carry
// the document-level entries PDF/UA-1 requires.
//
// Chrome's tagged output already holds the structure tree. What it lacks is
// catalog metadata: the PDF/UA identification in XMP, the document title
// display preference and the natural language. Finish adds those in a single
// incremental update and leaves every other object untouched.
package pdfua

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/digitorus/pdf"

	"github.com/alnah/go-uapdf/internal/pdfupdate"
)

// Version is the PDF version declared in the catalog of finished documents.
const Version = pdfupdate.DocumentVersion

// ErrUntagged indicates the document has no structure tree to finish.
var ErrUntagged = errors.New("document is not tagged")

// Info carries the document-level metadata written by Finish.
type Info struct {
	Title     string    // falls back to the existing /Info /Title
	Lang      string    // BCP 47 tag; keeps the existing /Lang when empty
	Producer  string    // written to /Info and XMP
	Creator   string    // XMP CreatorTool
	CreatedAt time.Time // zero means now
}

// Finish appends an update to data declaring PDF/UA-1 conformance.
func Finish(data []byte, info Info) (out []byte, err error) {
	u, err := pdfupdate.Open(data)
	if err != nil {
		return nil, err
	}
	defer pdfupdate.Recover(&err)

	catalog := u.Catalog()
	if catalog.Key("StructTreeRoot").Kind() != pdf.Dict {
		return nil, ErrUntagged
	}

	docInfo := u.Reader().Trailer().Key("Info")
	if info.Title == "" {
		info.Title = docInfo.Key("Title").Text()
	}
	if info.Lang == "" {
		info.Lang = catalog.Key("Lang").Text()
	}
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now()
	}

	xmp, err := renderXMP(info)
	if err != nil {
		return nil, err
	}
	metaRef := u.Alloc()
	u.Set(metaRef, pdfupdate.Stream("/Type /Metadata /Subtype /XML", xmp))

	catalogRef := pdfupdate.RefOf(catalog)
	set := map[string]string{
		"Version":  pdfupdate.Name(Version),
		"Metadata": metaRef.String(),
	}
	if set["ViewerPreferences"], err = mergeDict(catalog.Key("ViewerPreferences"),
		map[string]string{"DisplayDocTitle": "true"}); err != nil {
		return nil, err
	}
	if set["MarkInfo"], err = mergeDict(catalog.Key("MarkInfo"),
		map[string]string{"Marked": "true"}); err != nil {
		return nil, err
	}
	if info.Lang != "" {
		set["Lang"] = pdfupdate.TextString(info.Lang)
	}

	var body bytes.Buffer
	if err := pdfupdate.WriteDict(&body, catalog, catalogRef, set); err != nil {
		return nil, fmt.Errorf("writing catalog: %w", err)
	}
	u.Set(catalogRef, body.Bytes())

	if docInfo.Kind() == pdf.Dict {
		if err := updateInfo(u, docInfo, info); err != nil {
			return nil, err
		}
	}
	if err := setTabOrder(u); err != nil {
		return nil, err
	}

	res, err := u.Bytes()
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// mergeDict returns v (a dictionary, possibly absent) with set applied, as
// raw syntax to be inlined in the catalog.
func mergeDict(v pdf.Value, set map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := pdfupdate.WriteDict(&buf, v, pdfupdate.RefOf(v), set); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func updateInfo(u *pdfupdate.Update, docInfo pdf.Value, info Info) error {
	ref := pdfupdate.RefOf(docInfo)
	set := map[string]string{}
	if info.Title != "" {
		set["Title"] = pdfupdate.TextString(info.Title)
	}
	if info.Producer != "" {
		set["Producer"] = pdfupdate.TextString(info.Producer)
	}
	set["ModDate"] = pdfupdate.Date(info.CreatedAt)

	var body bytes.Buffer
	if err := pdfupdate.WriteDict(&body, docInfo, ref, set); err != nil {
		return fmt.Errorf("writing document info: %w", err)
	}
	u.Set(ref, body.Bytes())
	return nil
}

// setTabOrder makes annotation tab order follow the structure tree on every
// page that has annotations.
func setTabOrder(u *pdfupdate.Update) error {
	for n := 1; n <= u.NumPages(); n++ {
		page, err := u.Page(n)
		if err != nil {
			return err
		}
		if page.Key("Annots").Kind() != pdf.Array || page.Key("Tabs").Name() == "S" {
			continue
		}
		ref := pdfupdate.RefOf(page)
		var body bytes.Buffer
		if err := pdfupdate.WriteDict(&body, page, ref, map[string]string{"Tabs": "/S"}); err != nil {
			return fmt.Errorf("writing page %d: %w", n, err)
		}
		u.Set(ref, body.Bytes())
	}
	return nil
}
