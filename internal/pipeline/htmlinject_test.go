package pipeline

import (
	"context"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestInjectCSS
// ---------------------------------------------------------------------------

func TestInjectCSS(t *testing.T) {
	t.Parallel()

	const css = "body{font-family:X}"

	tests := []struct {
		name string
		html string
		css  string
		want string
	}{
		{
			name: "before closing head",
			html: "<html><head><title>t</title></head><body></body></html>",
			css:  css,
			want: "<html><head><title>t</title><style>body{font-family:X}</style></head><body></body></html>",
		},
		{
			name: "uppercase head",
			html: "<HTML><HEAD></HEAD><BODY></BODY></HTML>",
			css:  css,
			want: "<HTML><HEAD><style>body{font-family:X}</style></HEAD><BODY></BODY></HTML>",
		},
		{
			name: "dotted capital I in title",
			html: "<html><head><title>İzmir raporu</title></head><body><p>Merhaba dünya</p></body></html>",
			css:  css,
			want: "<html><head><title>İzmir raporu</title><style>body{font-family:X}</style></head><body><p>Merhaba dünya</p></body></html>",
		},
		{
			name: "kelvin sign in title",
			html: "<html><head><title>\u212Aelvin</title></head><body></body></html>",
			css:  css,
			want: "<html><head><title>\u212Aelvin</title><style>body{font-family:X}</style></head><body></body></html>",
		},
		{
			name: "closing head with whitespace",
			html: "<head></head >",
			css:  css,
			want: "<head><style>body{font-family:X}</style></head >",
		},
		{
			name: "kelvin sign before body without head",
			html: "\u212A<BODY id=\"b\"><p>x</p></BODY>",
			css:  css,
			want: "\u212A<BODY id=\"b\"><style>body{font-family:X}</style><p>x</p></BODY>",
		},
		{
			name: "bodyless tag prefix ignored",
			html: "<bodyguard>x</bodyguard>",
			css:  css,
			want: "<style>body{font-family:X}</style><bodyguard>x</bodyguard>",
		},
		{
			name: "after body without head",
			html: `<body class="a"><p>x</p></body>`,
			css:  css,
			want: `<body class="a"><style>body{font-family:X}</style><p>x</p></body>`,
		},
		{
			name: "fragment",
			html: "<p>x</p>",
			css:  css,
			want: "<style>body{font-family:X}</style><p>x</p>",
		},
		{
			name: "empty css unchanged",
			html: "<p>x</p>",
			css:  "",
			want: "<p>x</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			injector := &CSSInjection{}
			if got := injector.InjectCSS(context.Background(), tt.html, tt.css); got != tt.want {
				t.Errorf("InjectCSS() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInjectCSS_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := "<head></head>"
	if got := (&CSSInjection{}).InjectCSS(ctx, in, "p{}"); got != in {
		t.Errorf("InjectCSS() with cancelled context = %q, want input unchanged", got)
	}
}

func TestSanitizeCSS(t *testing.T) {
	t.Parallel()

	got := sanitizeCSS(`p{} </style><script>alert(1)</script>`)
	if strings.Contains(got, "</") {
		t.Errorf("sanitizeCSS() left a closing tag: %q", got)
	}
}
