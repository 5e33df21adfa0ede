// Package fixture builds small, valid PDF files and signing identities for tests.
//
// The documents are deliberately minimal (Helvetica text pages) but carry the
// structures the signing and finishing code has to preserve: a structure tree,
// document info, an /ID, existing annotations and form fields.
package fixture

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Options controls the generated document.
type Options struct {
	Pages      int    // number of pages (minimum 1)
	Title      string // /Info /Title
	Tagged     bool   // adds /MarkInfo, /StructTreeRoot and /Lang to the catalog
	Field      string // when set, page 1 carries a text form field with this name
	XrefStream bool   // write a cross-reference stream instead of a table
	Header     string // version in the %PDF- header, "1.4" when empty
	Version    string // catalog /Version entry, omitted when empty
}

type builder struct {
	objects []string // index i holds object i+1
}

func (b *builder) add(body string) int {
	b.objects = append(b.objects, body)
	return len(b.objects)
}

func (b *builder) set(id int, body string) {
	b.objects[id-1] = body
}

// Build returns the bytes of a PDF described by opts.
func Build(opts Options) []byte {
	if opts.Pages < 1 {
		opts.Pages = 1
	}
	if opts.Title == "" {
		opts.Title = "Test document"
	}
	if opts.Header == "" {
		opts.Header = "1.4"
	}

	b := &builder{}
	catalog := b.add("")
	pages := b.add("")
	info := b.add(fmt.Sprintf("<< /Title (%s) /Producer (pdftest) >>", opts.Title))
	font := b.add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	var structRoot int
	if opts.Tagged {
		structRoot = b.add("<< /Type /StructTreeRoot /K [] >>")
	}

	kids := make([]string, 0, opts.Pages)
	var fieldRef int
	for i := 1; i <= opts.Pages; i++ {
		text := fmt.Sprintf("BT /F1 18 Tf 72 720 Td (Page %d) Tj ET", i)
		content := b.add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(text), text))
		page := b.add("")
		annots := ""
		if i == 1 && opts.Field != "" {
			fieldRef = b.add(fmt.Sprintf(
				"<< /Type /Annot /Subtype /Widget /FT /Tx /T (%s) /Rect [72 600 272 630] /P %d 0 R /F 4 >>",
				opts.Field, page))
			annots = fmt.Sprintf(" /Annots [%d 0 R]", fieldRef)
		}
		b.set(page, fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R%s >>",
			pages, font, content, annots))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}
	b.set(pages, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), opts.Pages))

	cat := fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R", pages)
	if opts.Tagged {
		cat += fmt.Sprintf(" /MarkInfo << /Marked true >> /StructTreeRoot %d 0 R /Lang (en-US)", structRoot)
	}
	if opts.Version != "" {
		cat += " /Version /" + opts.Version
	}
	if fieldRef != 0 {
		cat += fmt.Sprintf(" /AcroForm << /Fields [%d 0 R] >>", fieldRef)
	}
	b.set(catalog, cat+" >>")

	return b.write(catalog, info, opts.Header, opts.XrefStream)
}

func (b *builder) write(root, info int, header string, xrefStream bool) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-" + header + "\n%\xE2\xE3\xCF\xD3\n")

	offsets := make([]int, len(b.objects)+1)
	for i, body := range b.objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	id := "<0123456789ABCDEF0123456789ABCDEF>"
	trailer := fmt.Sprintf("/Root %d 0 R /Info %d 0 R /ID [%s %s]", root, info, id, id)

	xrefOffset := buf.Len()
	if xrefStream {
		self := len(b.objects) + 1
		offsets = append(offsets, xrefOffset)
		var data bytes.Buffer
		entry := make([]byte, 7)
		for i := 0; i <= self; i++ {
			for j := range entry {
				entry[j] = 0
			}
			if i == 0 {
				binary.BigEndian.PutUint16(entry[5:], 0xFFFF)
			} else {
				entry[0] = 1
				binary.BigEndian.PutUint32(entry[1:5], uint32(offsets[i]))
			}
			data.Write(entry)
		}
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 2] %s /Length %d >>\nstream\n",
			self, self+1, trailer, data.Len())
		buf.Write(data.Bytes())
		buf.WriteString("\nendstream\nendobj\n")
	} else {
		fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(b.objects)+1)
		for i := 1; i <= len(b.objects); i++ {
			fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
		}
		fmt.Fprintf(&buf, "trailer\n<< /Size %d %s >>\n", len(b.objects)+1, trailer)
	}
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes()
}
