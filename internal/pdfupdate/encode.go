package pdfupdate

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/digitorus/pdf"
)

// WriteValue serializes v. Values that live in an indirect object other than
// owner are written as references, so copying a dictionary never duplicates
// the objects it points to.
func WriteValue(buf *bytes.Buffer, v pdf.Value, owner Ref) error {
	if ref := RefOf(v); !ref.IsZero() && ref != owner {
		buf.WriteString(ref.String())
		return nil
	}

	switch v.Kind() {
	case pdf.Null:
		buf.WriteString("null")
	case pdf.Bool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case pdf.Integer:
		buf.WriteString(strconv.FormatInt(v.Int64(), 10))
	case pdf.Real:
		buf.WriteString(Real(v.Float64()))
	case pdf.String:
		buf.WriteString(HexString([]byte(v.RawString())))
	case pdf.Name:
		buf.WriteString(Name(v.Name()))
	case pdf.Array:
		buf.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				buf.WriteByte(' ')
			}
			if err := WriteValue(buf, v.Index(i), owner); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case pdf.Dict:
		return WriteDict(buf, v, owner, nil)
	default:
		return fmt.Errorf("%w: cannot inline value of kind %v", ErrMalformed, v.Kind())
	}
	return nil
}

// WriteDict serializes the dictionary v with entries from set replacing or
// extending its own. A set entry with an empty value removes the key.
// Set values are raw PDF syntax.
func WriteDict(buf *bytes.Buffer, v pdf.Value, owner Ref, set map[string]string) error {
	buf.WriteString("<<")
	if v.Kind() == pdf.Dict {
		for _, key := range v.Keys() {
			if _, overridden := set[key]; overridden {
				continue
			}
			buf.WriteByte(' ')
			buf.WriteString(Name(key))
			buf.WriteByte(' ')
			if err := WriteValue(buf, v.Key(key), owner); err != nil {
				return fmt.Errorf("writing /%s: %w", key, err)
			}
		}
	}

	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if set[key] == "" {
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(Name(key))
		buf.WriteByte(' ')
		buf.WriteString(set[key])
	}
	buf.WriteString(" >>")
	return nil
}

// Stream builds the body of a stream object. entries is raw dictionary
// content without the surrounding << >> and without /Length.
func Stream(entries string, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("<<")
	if entries != "" {
		buf.WriteByte(' ')
		buf.WriteString(entries)
	}
	fmt.Fprintf(&buf, " /Length %d >>\nstream\n", len(data))
	buf.Write(data)
	buf.WriteString("\nendstream")
	return buf.Bytes()
}

// Name encodes a PDF name, escaping delimiters and non-regular characters as #XX.
func Name(s string) string {
	var b strings.Builder
	b.WriteByte('/')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x21 || c > 0x7e || strings.IndexByte("#()<>[]{}/%", c) >= 0 {
			fmt.Fprintf(&b, "#%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// HexString encodes raw bytes as a PDF hexadecimal string.
func HexString(data []byte) string {
	return "<" + strings.ToUpper(hex.EncodeToString(data)) + ">"
}

// LiteralString encodes raw bytes as a PDF literal string.
func LiteralString(data []byte) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, c := range data {
		switch c {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(')')
	return b.String()
}

// TextString encodes s as a PDF text string: printable ASCII stays a literal
// string, anything else becomes UTF-16BE with a byte order mark.
func TextString(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			ascii = false
			break
		}
	}
	if ascii {
		return LiteralString([]byte(s))
	}

	units := utf16.Encode([]rune(s))
	data := make([]byte, 2, 2+2*len(units))
	data[0], data[1] = 0xFE, 0xFF
	for _, u := range units {
		data = append(data, byte(u>>8), byte(u))
	}
	return HexString(data)
}

// Date encodes t as a PDF date string, e.g. (D:20260102150405+01'00').
func Date(t time.Time) string {
	_, offset := t.Zone()
	tz := "Z"
	if offset != 0 {
		sign := '+'
		if offset < 0 {
			sign = '-'
			offset = -offset
		}
		tz = fmt.Sprintf("%c%02d'%02d'", sign, offset/3600, (offset%3600)/60)
	}
	return "(D:" + t.Format("20060102150405") + tz + ")"
}

// Real formats a number without exponent notation, as PDF requires.
func Real(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
