package pipeline

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Metadata is what the markup says about itself.
type Metadata struct {
	Title   string // <title> text
	Lang    string // lang attribute of <html>
	Heading string // text of the first <h1>, a title fallback
	Styles  string // concatenated text of every <style> element
}

// ExtractMetadata reads title, language, first heading and inline styles.
func ExtractMetadata(htmlContent string) (Metadata, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return Metadata{}, err
	}

	var (
		meta   Metadata
		styles strings.Builder
	)
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.DataAtom {
		case atom.Html:
			meta.Lang = strings.TrimSpace(attr(n, "lang"))
		case atom.Title:
			if meta.Title == "" {
				meta.Title = collapseSpace(textContent(n))
			}
		case atom.H1:
			if meta.Heading == "" {
				meta.Heading = collapseSpace(textContent(n))
			}
		case atom.Style:
			styles.WriteString(textContent(n))
			styles.WriteByte('\n')
		}
	})
	meta.Styles = styles.String()
	return meta, nil
}

// ApplyMetadata sets the document title and language, creating <title> when
// absent. Empty fields of meta leave the markup as is. The result is always a
// full document.
func ApplyMetadata(htmlContent string, meta Meta) (string, error) {
	if meta.Title == "" && meta.Lang == "" {
		return htmlContent, nil
	}

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var root, head, title *html.Node
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.DataAtom {
		case atom.Html:
			root = n
		case atom.Head:
			if head == nil {
				head = n
			}
		case atom.Title:
			if title == nil {
				title = n
			}
		}
	})

	if meta.Lang != "" && root != nil {
		setAttr(root, "lang", meta.Lang)
	}
	if meta.Title != "" && head != nil {
		if title == nil {
			title = &html.Node{Type: html.ElementNode, DataAtom: atom.Title, Data: "title"}
			head.AppendChild(title)
		}
		for c := title.FirstChild; c != nil; c = title.FirstChild {
			title.RemoveChild(c)
		}
		title.AppendChild(&html.Node{Type: html.TextNode, Data: meta.Title})
	}

	var buf strings.Builder
	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
