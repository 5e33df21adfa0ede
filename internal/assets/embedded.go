package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed samples/*
var samples embed.FS

// DefaultSampleName is the sample rendered when no source is configured.
const DefaultSampleName = "ua-compliant"

// Source formats of a sample.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

var extFormats = map[string]string{
	".html": FormatHTML,
	".md":   FormatMarkdown,
}

// Sample is an embedded source document.
type Sample struct {
	Name    string
	Format  string // FormatHTML or FormatMarkdown
	Content string
}

// LoadSample loads an embedded sample by name, without extension.
func LoadSample(name string) (*Sample, error) {
	if err := ValidateAssetName(name); err != nil {
		return nil, err
	}

	for ext, format := range extFormats {
		content, err := samples.ReadFile("samples/" + name + ext)
		if err != nil {
			continue
		}
		return &Sample{Name: name, Format: format, Content: string(content)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrSampleNotFound, name)
}

// SampleNames lists the embedded samples, sorted.
func SampleNames() []string {
	entries, err := fs.ReadDir(samples, "samples")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := path.Ext(e.Name())
		if _, ok := extFormats[ext]; ok {
			names = append(names, strings.TrimSuffix(e.Name(), ext))
		}
	}
	sort.Strings(names)
	return names
}
