package pdfua

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"text/template"
	"time"
)

// XMP packet with the PDF/UA identification schema. The packet is written
// uncompressed so validators and text tools can read it directly.
const xmpPacket = `<?xpacket begin="` + "\uFEFF" + `" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:dc="http://purl.org/dc/elements/1.1/"
    xmlns:pdf="http://ns.adobe.com/pdf/1.3/"
    xmlns:xmp="http://ns.adobe.com/xap/1.0/"
    xmlns:pdfuaid="http://www.aiim.org/pdfua/ns/id/">
   <dc:format>application/pdf</dc:format>
   <dc:title><rdf:Alt><rdf:li xml:lang="x-default">{{xml .Title}}</rdf:li></rdf:Alt></dc:title>
{{- with .Lang}}
   <dc:language><rdf:Bag><rdf:li>{{xml .}}</rdf:li></rdf:Bag></dc:language>
{{- end}}
{{- with .Producer}}
   <pdf:Producer>{{xml .}}</pdf:Producer>
{{- end}}
{{- with .Creator}}
   <xmp:CreatorTool>{{xml .}}</xmp:CreatorTool>
{{- end}}
   <xmp:CreateDate>{{date .CreatedAt}}</xmp:CreateDate>
   <xmp:ModifyDate>{{date .CreatedAt}}</xmp:ModifyDate>
   <xmp:MetadataDate>{{date .CreatedAt}}</xmp:MetadataDate>
   <pdfuaid:part>1</pdfuaid:part>
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`

var xmpTemplate = template.Must(template.New("xmp").Funcs(template.FuncMap{
	"xml":  escapeXML,
	"date": func(t time.Time) string { return t.Format(time.RFC3339) },
}).Parse(xmpPacket))

func escapeXML(s string) (string, error) {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderXMP(info Info) ([]byte, error) {
	var buf bytes.Buffer
	if err := xmpTemplate.Execute(&buf, info); err != nil {
		return nil, fmt.Errorf("rendering XMP metadata: %w", err)
	}
	return buf.Bytes(), nil
}
