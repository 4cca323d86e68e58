package render

import (
	"fmt"
	"testing"

	"folio/internal/domain/models/publish"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guideDoc = `{
  "type": "doc",
  "content": [
    {"type": "heading", "attrs": {"level": 1}, "content": [{"type": "text", "text": "Getting Started"}]},
    {"type": "paragraph", "content": [
      {"type": "text", "text": "Install the "},
      {"type": "text", "text": "CLI", "marks": [{"type": "bold"}]},
      {"type": "text", "text": " first."}
    ]},
    {"type": "heading", "attrs": {"level": 2}, "content": [{"type": "text", "text": "Setup"}]},
    {"type": "codeBlock", "attrs": {"language": "bash"}, "content": [{"type": "text", "text": "folio init <dir>"}]},
    {"type": "heading", "attrs": {"level": 2}, "content": [{"type": "text", "text": "Setup"}]},
    {"type": "bulletList", "content": [
      {"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "one"}]}]},
      {"type": "listItem", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "two"}]}]}
    ]}
  ]
}`

func tiptap(body string) *publish.StructuredContent {
	return &publish.StructuredContent{Format: publish.FormatTipTap, Body: []byte(body)}
}

func TestRenderTipTap(t *testing.T) {
	r := NewRenderer()
	out := r.Render(tiptap(guideDoc))

	assert.Contains(t, out.HTML, `<h1 id="getting-started">Getting Started</h1>`)
	assert.Contains(t, out.HTML, `<h2 id="setup">Setup</h2>`)
	assert.Contains(t, out.HTML, `<h2 id="setup-1">Setup</h2>`)
	assert.Contains(t, out.HTML, `<strong>CLI</strong>`)
	assert.Contains(t, out.HTML, `<code class="language-bash">folio init &lt;dir&gt;</code>`)
	assert.Contains(t, out.HTML, `<ul><li><p>one</p></li><li><p>two</p></li></ul>`)

	require.Len(t, out.TOC, 3)
	assert.Equal(t, publish.TOCEntry{Level: 1, Text: "Getting Started", ID: "getting-started"}, out.TOC[0])
	assert.Equal(t, "setup-1", out.TOC[2].ID)

	assert.Equal(t, "Getting Started Install the CLI first. Setup folio init <dir> Setup one two", out.Plain)
}

func TestHeadingIDsAreUnique(t *testing.T) {
	tests := []struct {
		name     string
		headings []string
		want     []string
	}{
		{"repeats", []string{"Setup", "Setup", "Setup"}, []string{"setup", "setup-1", "setup-2"}},
		{"suffix taken by a later heading", []string{"Setup", "Setup", "Setup 1"}, []string{"setup", "setup-1", "setup-1-1"}},
		{"suffix taken by an earlier heading", []string{"Setup 1", "Setup", "Setup"}, []string{"setup-1", "setup", "setup-2"}},
		{"empty titles", []string{"", "!!"}, []string{"section", "section-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"type":"doc","content":[`
			for i, h := range tt.headings {
				if i > 0 {
					doc += ","
				}
				doc += fmt.Sprintf(`{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":%q}]}`, h)
			}
			doc += `]}`

			out := NewRenderer().Render(tiptap(doc))
			var ids []string
			for _, e := range out.TOC {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	// goldmark shares the same id allocator
	src := "## Setup\n\n## Setup\n\n## Setup 1\n"
	out := NewRenderer().Render(&publish.StructuredContent{Format: publish.FormatMarkdown, Body: []byte(src)})
	require.Len(t, out.TOC, 3)
	assert.Equal(t, "setup-1-1", out.TOC[2].ID)
}

func TestRenderIsDeterministic(t *testing.T) {
	r := NewRenderer()
	first := r.Render(tiptap(guideDoc))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Render(tiptap(guideDoc)))
	}
}

func TestRenderEmptyOrMalformed(t *testing.T) {
	r := NewRenderer()
	tests := []struct {
		name    string
		content *publish.StructuredContent
	}{
		{"nil", nil},
		{"empty body", tiptap("")},
		{"null", tiptap("null")},
		{"not json", tiptap("{not json")},
		{"wrong shape", tiptap(`[1,2,3]`)},
		{"unknown format", &publish.StructuredContent{Format: "docx", Body: []byte("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Render(tt.content)
			assert.Empty(t, out.HTML)
			assert.Empty(t, out.Plain)
			assert.NotNil(t, out.TOC)
			assert.Empty(t, out.TOC)
		})
	}
}

func TestRenderSanitizesLinks(t *testing.T) {
	r := NewRenderer()
	out := r.Render(tiptap(`{"type":"doc","content":[{"type":"paragraph","content":[
		{"type":"text","text":"bad","marks":[{"type":"link","attrs":{"href":"javascript:alert(1)"}}]},
		{"type":"text","text":"good","marks":[{"type":"link","attrs":{"href":"https://example.com"}}]}
	]}]}`))

	assert.NotContains(t, out.HTML, "javascript:")
	assert.Contains(t, out.HTML, `href="https://example.com"`)
	assert.Equal(t, "bad good", out.Plain)
}

func TestRenderCallout(t *testing.T) {
	r := NewRenderer()
	out := r.Render(tiptap(`{"type":"doc","content":[{"type":"callout","attrs":{"variant":"warning"},
		"content":[{"type":"paragraph","content":[{"type":"text","text":"careful"}]}]}]}`))

	assert.Contains(t, out.HTML, `<div class="callout callout-warning"><p>careful</p></div>`)
}

func TestRenderMarkdown(t *testing.T) {
	r := NewRenderer()
	src := "# Intro\n\nHello *world*.\n\n## Usage\n\n<script>alert(1)</script>\n\n## Usage\n"
	out := r.Render(&publish.StructuredContent{Format: publish.FormatMarkdown, Body: []byte(src)})

	assert.Contains(t, out.HTML, `<h1 id="intro">Intro</h1>`)
	assert.Contains(t, out.HTML, `<em>world</em>`)
	assert.NotContains(t, out.HTML, "<script>")

	require.Len(t, out.TOC, 3)
	assert.Equal(t, "usage", out.TOC[1].ID)
	assert.Equal(t, "usage-1", out.TOC[2].ID)
	assert.Equal(t, 2, out.TOC[1].Level)
	assert.Contains(t, out.Plain, "Hello world")
}
