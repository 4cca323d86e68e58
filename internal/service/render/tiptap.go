package render

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"folio/internal/domain/models/publish"
	"folio/internal/utils"
)

// node is one TipTap (ProseMirror) JSON node.
type node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []mark         `json:"marks,omitempty"`
}

type mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// tiptapWriter accumulates the three outputs of a single traversal.
type tiptapWriter struct {
	html    strings.Builder
	toc     []publish.TOCEntry
	plain   []string
	anchors *anchors
}

func renderTipTap(body []byte) (publish.Rendered, bool) {
	var doc node
	if err := json.Unmarshal(body, &doc); err != nil {
		return publish.Rendered{}, false
	}
	if doc.Type != "doc" && doc.Type != "" {
		doc = node{Type: "doc", Content: []node{doc}}
	}

	w := &tiptapWriter{anchors: newAnchors()}
	w.children(doc.Content)

	return publish.Rendered{
		HTML:  w.html.String(),
		TOC:   w.toc,
		Plain: strings.Join(w.plain, " "),
	}, true
}

func (w *tiptapWriter) children(nodes []node) {
	for i := range nodes {
		w.node(&nodes[i])
	}
}

func (w *tiptapWriter) node(n *node) {
	switch n.Type {
	case "text":
		w.text(n)
	case "paragraph":
		w.wrap("p", "", n)
	case "heading":
		w.heading(n)
	case "bulletList":
		w.wrap("ul", "", n)
	case "orderedList":
		attrs := ""
		if start := intAttr(n.Attrs, "start", 1); start > 1 {
			attrs = fmt.Sprintf(` start="%d"`, start)
		}
		w.wrap("ol", attrs, n)
	case "listItem", "taskItem":
		w.wrap("li", "", n)
	case "taskList":
		w.wrap("ul", "", n)
	case "codeBlock":
		w.codeBlock(n)
	case "blockquote":
		w.wrap("blockquote", "", n)
	case "horizontalRule":
		w.html.WriteString("<hr>")
	case "hardBreak":
		w.html.WriteString("<br>")
	case "image":
		w.image(n)
	case "table":
		w.html.WriteString("<table><tbody>")
		w.children(n.Content)
		w.html.WriteString("</tbody></table>")
	case "tableRow":
		w.wrap("tr", "", n)
	case "tableHeader":
		w.wrap("th", "", n)
	case "tableCell":
		w.wrap("td", "", n)
	case "callout":
		class := "callout"
		if variant := utils.Slugify(stringAttr(n.Attrs, "variant")); variant != "" && !strings.Contains(variant, "-") {
			class += " callout-" + variant
		}
		w.wrap("div", fmt.Sprintf(` class="%s"`, class), n)
	default:
		// Unknown block types still contribute their content
		w.children(n.Content)
	}
}

func (w *tiptapWriter) wrap(tag, attrs string, n *node) {
	w.html.WriteString("<" + tag + attrs + ">")
	w.children(n.Content)
	w.html.WriteString("</" + tag + ">")
}

func (w *tiptapWriter) heading(n *node) {
	level := intAttr(n.Attrs, "level", 1)
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}

	text := strings.TrimSpace(inlineText(n.Content))
	id := w.anchors.next(text)
	w.toc = append(w.toc, publish.TOCEntry{Level: level, Text: text, ID: id})

	tag := fmt.Sprintf("h%d", level)
	w.wrap(tag, fmt.Sprintf(` id="%s"`, id), n)
}

func (w *tiptapWriter) codeBlock(n *node) {
	var code strings.Builder
	for _, child := range n.Content {
		code.WriteString(child.Text)
		w.leaf(child.Text)
	}

	w.html.WriteString("<pre><code")
	if lang := stringAttr(n.Attrs, "language"); lang != "" {
		w.html.WriteString(` class="language-` + html.EscapeString(lang) + `"`)
	}
	w.html.WriteString(">")
	w.html.WriteString(html.EscapeString(code.String()))
	w.html.WriteString("</code></pre>")
}

func (w *tiptapWriter) image(n *node) {
	src := stringAttr(n.Attrs, "src")
	if src == "" {
		return
	}
	w.html.WriteString(`<img src="` + html.EscapeString(src) + `"`)
	if alt := stringAttr(n.Attrs, "alt"); alt != "" {
		w.html.WriteString(` alt="` + html.EscapeString(alt) + `"`)
	}
	if title := stringAttr(n.Attrs, "title"); title != "" {
		w.html.WriteString(` title="` + html.EscapeString(title) + `"`)
	}
	w.html.WriteString(">")
}

func (w *tiptapWriter) text(n *node) {
	w.leaf(n.Text)

	out := html.EscapeString(n.Text)
	for _, m := range n.Marks {
		switch m.Type {
		case "bold":
			out = "<strong>" + out + "</strong>"
		case "italic":
			out = "<em>" + out + "</em>"
		case "strike":
			out = "<s>" + out + "</s>"
		case "underline":
			out = "<u>" + out + "</u>"
		case "code":
			out = "<code>" + out + "</code>"
		case "link":
			href := stringAttr(m.Attrs, "href")
			if href != "" {
				out = `<a href="` + html.EscapeString(href) + `">` + out + "</a>"
			}
		}
	}
	w.html.WriteString(out)
}

// leaf records an inline text leaf for the plain text output.
func (w *tiptapWriter) leaf(s string) {
	if s = strings.TrimSpace(s); s != "" {
		w.plain = append(w.plain, s)
	}
}

func inlineText(nodes []node) string {
	var b strings.Builder
	for _, n := range nodes {
		if n.Type == "text" {
			b.WriteString(n.Text)
		}
		b.WriteString(inlineText(n.Content))
	}
	return b.String()
}

func stringAttr(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)
	return s
}

func intAttr(attrs map[string]any, key string, def int) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}
