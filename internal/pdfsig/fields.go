package pdfsig

import (
	"github.com/digitorus/pdf"

	"github.com/alnah/go-uapdf/internal/pdfupdate"
)

// maxFieldDepth bounds recursion through /Kids, guarding against cycles.
const maxFieldDepth = 32

// field is a terminal form field with its fully qualified name.
type field struct {
	name  string
	value pdf.Value
}

// formFields returns the terminal fields reachable from the catalog's
// /AcroForm /Fields array.
func formFields(catalog pdf.Value) []field {
	var out []field
	fields := catalog.Key("AcroForm").Key("Fields")
	for i := 0; i < fields.Len(); i++ {
		out = collectFields(out, fields.Index(i), "", 0, map[pdfupdate.Ref]bool{})
	}
	return out
}

func collectFields(out []field, v pdf.Value, parent string, depth int, seen map[pdfupdate.Ref]bool) []field {
	if v.Kind() != pdf.Dict || depth > maxFieldDepth {
		return out
	}
	if ref := pdfupdate.RefOf(v); !ref.IsZero() {
		if seen[ref] {
			return out
		}
		seen[ref] = true
	}

	name := parent
	if t := v.Key("T").Text(); t != "" {
		if name != "" {
			name += "."
		}
		name += t
	}

	kids := v.Key("Kids")
	hasFieldKids := false
	for i := 0; i < kids.Len(); i++ {
		if kids.Index(i).Key("T").Kind() != pdf.Null {
			hasFieldKids = true
			break
		}
	}
	if !hasFieldKids {
		return append(out, field{name: name, value: v})
	}
	for i := 0; i < kids.Len(); i++ {
		out = collectFields(out, kids.Index(i), name, depth+1, seen)
	}
	return out
}

// fieldType returns /FT, which may be inherited from a parent field.
func fieldType(v pdf.Value) string {
	for depth := 0; depth <= maxFieldDepth && v.Kind() == pdf.Dict; depth++ {
		if ft := v.Key("FT"); ft.Kind() == pdf.Name {
			return ft.Name()
		}
		v = v.Key("Parent")
	}
	return ""
}
