package assets

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestLoadSample(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		sample      string
		wantFormat  string
		wantContain []string
		wantErr     error
	}{
		{
			name:       "default html sample",
			sample:     DefaultSampleName,
			wantFormat: FormatHTML,
			wantContain: []string{
				`<html lang="en">`,
				"<title>UA compliant</title>",
				"font-family: MyCustomFont;",
				"url('./FreeSans.ttf')",
			},
		},
		{
			name:        "markdown sample",
			sample:      "report",
			wantFormat:  FormatMarkdown,
			wantContain: []string{"# Quarterly report"},
		},
		{
			name:    "unknown",
			sample:  "nonexistent-sample-xyz",
			wantErr: ErrSampleNotFound,
		},
		{
			name:    "traversal",
			sample:  "../doc",
			wantErr: ErrInvalidAssetName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := LoadSample(tt.sample)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("LoadSample() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadSample() error = %v", err)
			}
			if got.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", got.Format, tt.wantFormat)
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(got.Content, want) {
					t.Errorf("Content missing %q", want)
				}
			}
		})
	}
}

func TestSampleNames(t *testing.T) {
	t.Parallel()

	if got := SampleNames(); !reflect.DeepEqual(got, []string{"report", "ua-compliant"}) {
		t.Errorf("SampleNames() = %v", got)
	}
}
