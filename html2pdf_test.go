package uapdf

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestBuildPDFOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		page          *PageSettings
		width, height float64
		margin        float64
	}{
		{name: "nil uses A4", page: nil, width: 8.27, height: 11.69, margin: DefaultMargin},
		{name: "letter", page: &PageSettings{Size: "letter", Orientation: "portrait", Margin: 1}, width: 8.5, height: 11, margin: 1},
		{name: "legal landscape", page: &PageSettings{Size: "legal", Orientation: "landscape", Margin: 0.75}, width: 14, height: 8.5, margin: 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := buildPDFOptions(tt.page)
			if !opts.GenerateTaggedPDF {
				t.Error("GenerateTaggedPDF = false, want true")
			}
			if !opts.GenerateDocumentOutline {
				t.Error("GenerateDocumentOutline = false, want true")
			}
			if !opts.PrintBackground {
				t.Error("PrintBackground = false, want true")
			}
			if *opts.PaperWidth != tt.width || *opts.PaperHeight != tt.height {
				t.Errorf("paper = %v x %v, want %v x %v", *opts.PaperWidth, *opts.PaperHeight, tt.width, tt.height)
			}
			for name, m := range map[string]*float64{
				"top": opts.MarginTop, "bottom": opts.MarginBottom,
				"left": opts.MarginLeft, "right": opts.MarginRight,
			} {
				if *m != tt.margin {
					t.Errorf("margin %s = %v, want %v", name, *m, tt.margin)
				}
			}
		})
	}
}

func TestRodConverter_CloseWithoutBrowser(t *testing.T) {
	t.Parallel()

	c := newRodConverter(time.Second, zerolog.Nop())
	if err := c.Close(); err != nil {
		t.Errorf("Close() unexpected error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() unexpected error: %v", err)
	}
}

func TestRodRenderer_RenderFromFile_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newRodRenderer(time.Second, zerolog.Nop())
	_, err := r.RenderFromFile(ctx, "/nonexistent.html", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RenderFromFile() error = %v, want context.Canceled", err)
	}
	if r.browser != nil {
		t.Error("browser launched for a cancelled context")
	}
}
