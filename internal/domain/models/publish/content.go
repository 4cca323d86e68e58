package publish

// Source formats understood by the renderer.
const (
	FormatTipTap   = "tiptap"
	FormatMarkdown = "markdown"
)

// StructuredContent is a document's source as handed over by a content source.
type StructuredContent struct {
	Format string
	Body   []byte
}

// TOCEntry is one heading in a rendered page.
type TOCEntry struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// Rendered is the output of rendering one document.
type Rendered struct {
	HTML  string     `json:"html"`
	TOC   []TOCEntry `json:"toc"`
	Plain string     `json:"-"`
}

// PageBundle is the content-addressed payload fetched per page view. Title,
// slug and trail live in the manifest entry so that renames reuse the blob.
type PageBundle struct {
	ID       string       `json:"id"`
	Rendered RenderedBody `json:"rendered"`
	Plain    string       `json:"plain"`
	Source   BundleSource `json:"source"`
}

type RenderedBody struct {
	HTML string     `json:"html"`
	TOC  []TOCEntry `json:"toc"`
}

type BundleSource struct {
	Kind   string `json:"kind"`
	Format string `json:"format"`
}
