package pipeline

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-uapdf/internal/fileutil"
)

// cssURLPattern matches url(...) values with optional quotes.
var cssURLPattern = regexp.MustCompile(`url\(\s*(?:"([^"]*)"|'([^']*)'|([^)\s'"]*))\s*\)`)

// RewriteRelativePaths converts relative references to absolute file:// URLs.
// The browser loads the markup from a temporary file, so anything relative
// would otherwise resolve against the temp directory.
// If sourceDir is empty, returns the HTML unchanged.
//
// Rewrites:
//   - img[src], a[href], link[href]
//   - url() values inside <style> elements and style attributes
//
// Absolute paths, URLs, anchors and paths escaping sourceDir are left alone.
// script[src] is never rewritten.
func RewriteRelativePaths(htmlContent, sourceDir string) (string, error) {
	if sourceDir == "" {
		return htmlContent, nil
	}

	absSourceDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", err
	}

	doc, isFragment, err := parseHTML(htmlContent)
	if err != nil {
		return "", err
	}

	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.DataAtom {
		case atom.Img:
			rewriteAttr(n, "src", absSourceDir)
		case atom.A, atom.Link:
			rewriteAttr(n, "href", absSourceDir)
		case atom.Style:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					c.Data = RewriteCSSURLs(c.Data, absSourceDir)
				}
			}
		}
		for i, a := range n.Attr {
			if a.Key == "style" {
				n.Attr[i].Val = RewriteCSSURLs(a.Val, absSourceDir)
			}
		}
	})

	return renderHTML(doc, isFragment)
}

// RewriteCSSURLs replaces relative url() values in css with file:// URLs
// under sourceDir, which must be absolute.
func RewriteCSSURLs(css, sourceDir string) string {
	return cssURLPattern.ReplaceAllStringFunc(css, func(m string) string {
		sub := cssURLPattern.FindStringSubmatch(m)
		ref := sub[1] + sub[2] + sub[3]
		resolved, ok := resolveRelative(ref, sourceDir)
		if !ok {
			return m
		}
		return `url("` + resolved + `")`
	})
}

// parseHTML parses full documents as such and anything else as a body fragment.
func parseHTML(content string) (*html.Node, bool, error) {
	trimmed := strings.ToLower(strings.TrimSpace(content))
	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		doc, err := html.Parse(strings.NewReader(content))
		return doc, false, err
	}

	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return nil, true, err
	}
	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, true, nil
}

// renderHTML renders doc; fragments are rendered without a wrapper.
func renderHTML(doc *html.Node, isFragment bool) (string, error) {
	var buf strings.Builder
	if !isFragment {
		err := html.Render(&buf, doc)
		return buf.String(), err
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func rewriteAttr(n *html.Node, key, sourceDir string) {
	for i, a := range n.Attr {
		if a.Key != key {
			continue
		}
		if resolved, ok := resolveRelative(a.Val, sourceDir); ok {
			n.Attr[i].Val = resolved
		}
	}
}

// resolveRelative returns the file:// URL of ref under sourceDir, keeping
// any query or fragment. ok is false when ref must not be rewritten.
func resolveRelative(ref, sourceDir string) (string, bool) {
	if !isRelativePath(ref) {
		return "", false
	}

	p, suffix := ref, ""
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p, suffix = p[:i], p[i:]
	}
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}

	abs := filepath.Join(sourceDir, filepath.FromSlash(p))
	if !isPathUnderDir(abs, sourceDir) {
		return "", false
	}
	return pathToFileURL(abs) + suffix, true
}

// isRelativePath reports whether path is a relative filesystem reference.
func isRelativePath(path string) bool {
	if path == "" || strings.HasPrefix(path, "#") || fileutil.IsURL(path) {
		return false
	}
	if u, err := url.Parse(path); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return false // mailto:, tel:, blob:...
	}
	return !filepath.IsAbs(path) && !strings.HasPrefix(path, "/")
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanDir := filepath.Clean(dir)
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(filepath.Clean(absPath)+string(filepath.Separator), cleanDir)
}

// pathToFileURL converts an absolute path to a file:// URL.
func pathToFileURL(absPath string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)}
	return u.String()
}
