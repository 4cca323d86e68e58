package render

import (
	"bytes"
	"strings"

	"folio/internal/domain/models/publish"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// newMarkdown builds the engine used for repository-backed sources: GFM,
// auto heading ids, raw HTML dropped.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
}

func (r *Renderer) renderMarkdown(src []byte) (publish.Rendered, bool) {
	ctx := parser.NewContext(parser.WithIDs(newAnchors()))
	doc := r.markdown.Parser().Parse(text.NewReader(src), parser.WithContext(ctx))

	var toc []publish.TOCEntry
	var plain []string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			entry := publish.TOCEntry{
				Level: node.Level,
				Text:  strings.TrimSpace(nodeText(node, src)),
			}
			if id, ok := node.AttributeString("id"); ok {
				if b, ok := id.([]byte); ok {
					entry.ID = string(b)
				}
			}
			toc = append(toc, entry)
		case *ast.Text:
			if s := strings.TrimSpace(string(node.Segment.Value(src))); s != "" {
				plain = append(plain, s)
			}
		case *ast.String:
			if s := strings.TrimSpace(string(node.Value)); s != "" {
				plain = append(plain, s)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return publish.Rendered{}, false
	}

	var buf bytes.Buffer
	if err := r.markdown.Renderer().Render(&buf, src, doc); err != nil {
		return publish.Rendered{}, false
	}

	return publish.Rendered{
		HTML:  buf.String(),
		TOC:   toc,
		Plain: strings.Join(plain, " "),
	}, true
}

// nodeText concatenates the inline text below n.
func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(nodeText(c, src))
		}
	}
	return b.String()
}
