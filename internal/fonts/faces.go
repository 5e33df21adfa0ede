package fonts

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	faceBlockPattern  = regexp.MustCompile(`(?is)@font-face\s*\{([^}]*)\}`)
	familyDeclPattern = regexp.MustCompile(`(?is)font-family\s*:\s*([^;]+)`)
	urlPattern        = regexp.MustCompile(`(?is)url\(\s*(?:"([^"]*)"|'([^']*)'|([^)\s]*))\s*\)`)
)

// Face is an @font-face rule found in a stylesheet.
type Face struct {
	Family string
	URLs   []string
}

// ParseFaces extracts the @font-face rules of css.
func ParseFaces(css string) []Face {
	var faces []Face
	for _, block := range faceBlockPattern.FindAllStringSubmatch(css, -1) {
		body := block[1]
		m := familyDeclPattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		face := Face{Family: unquote(strings.TrimSpace(m[1]))}
		for _, u := range urlPattern.FindAllStringSubmatch(body, -1) {
			face.URLs = append(face.URLs, u[1]+u[2]+u[3])
		}
		faces = append(faces, face)
	}
	return faces
}

// FamiliesFor returns the families of faces whose source URL names the same
// file as fontPath, compared by base name.
func FamiliesFor(faces []Face, fontPath string) []string {
	want := strings.ToLower(path.Base(strings.ReplaceAll(fontPath, `\`, "/")))
	var out []string
	for _, f := range faces {
		for _, u := range f.URLs {
			if strings.ToLower(urlBase(u)) == want {
				out = append(out, f.Family)
				break
			}
		}
	}
	return out
}

func urlBase(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(raw)
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
