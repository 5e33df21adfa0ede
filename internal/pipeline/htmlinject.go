package pipeline

import (
	"context"
	"regexp"
	"strings"
)

// Tag patterns are matched on the original bytes: lowercasing the markup
// first changes the byte length of some characters (U+0130, U+212A).
var (
	headEndPattern   = regexp.MustCompile(`(?i)</head\s*>`)
	bodyStartPattern = regexp.MustCompile(`(?i)<body(?:\s[^>]*)?>`)
)

// CSSInjector defines the contract for CSS injection into HTML.
type CSSInjector interface {
	InjectCSS(ctx context.Context, htmlContent, cssContent string) string
}

// CSSInjection injects CSS as a <style> block into HTML content.
type CSSInjection struct{}

// InjectCSS inserts a <style> block at the end of <head>, so its rules follow
// (and for equal selectors or font families, override) the markup's own.
// Without a head it goes right after <body>, then before everything.
func (s *CSSInjection) InjectCSS(ctx context.Context, htmlContent, cssContent string) string {
	if cssContent == "" || ctx.Err() != nil {
		return htmlContent
	}

	styleBlock := "<style>" + sanitizeCSS(cssContent) + "</style>"

	if loc := headEndPattern.FindStringIndex(htmlContent); loc != nil {
		return htmlContent[:loc[0]] + styleBlock + htmlContent[loc[0]:]
	}
	if loc := bodyStartPattern.FindStringIndex(htmlContent); loc != nil {
		return htmlContent[:loc[1]] + styleBlock + htmlContent[loc[1]:]
	}
	return styleBlock + htmlContent
}

// sanitizeCSS escapes "</" so the content cannot close the <style> element.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
