// Package render turns structured document sources into sanitized HTML, a
// table of contents and plain text. Rendering never fails: absent or
// malformed input yields an empty page.
package render

import (
	"bytes"

	"folio/internal/domain/models/publish"

	"github.com/yuin/goldmark"
)

// Renderer is safe for concurrent use.
type Renderer struct {
	sanitizer *Sanitizer
	markdown  goldmark.Markdown
}

// NewRenderer creates a renderer with the default sanitizing policy.
func NewRenderer() *Renderer {
	return &Renderer{
		sanitizer: NewSanitizer(),
		markdown:  newMarkdown(),
	}
}

// Render dispatches on the content format.
func (r *Renderer) Render(content *publish.StructuredContent) publish.Rendered {
	if content == nil || isEmptyBody(content.Body) {
		return empty()
	}

	var out publish.Rendered
	var ok bool
	switch content.Format {
	case publish.FormatMarkdown:
		out, ok = r.renderMarkdown(content.Body)
	case publish.FormatTipTap, "":
		out, ok = renderTipTap(content.Body)
	}
	if !ok {
		return empty()
	}

	out.HTML = r.sanitizer.Sanitize(out.HTML)
	if out.TOC == nil {
		out.TOC = []publish.TOCEntry{}
	}
	return out
}

func empty() publish.Rendered {
	return publish.Rendered{TOC: []publish.TOCEntry{}}
}

func isEmptyBody(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}
