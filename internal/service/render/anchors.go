package render

import (
	"fmt"

	"folio/internal/utils"

	"github.com/yuin/goldmark/ast"
)

// anchors hands out unique heading ids within one document: the first
// "Setup" heading gets "setup", later ones "setup-1", "setup-2". A suffixed
// candidate already taken by another heading is skipped.
// It also satisfies goldmark's parser.IDs so both formats agree.
type anchors struct {
	used   map[string]bool
	suffix map[string]int
}

func newAnchors() *anchors {
	return &anchors{used: map[string]bool{}, suffix: map[string]int{}}
}

func (a *anchors) next(text string) string {
	base := utils.Slugify(text)
	if base == "" {
		base = "section"
	}
	if !a.used[base] {
		a.used[base] = true
		return base
	}
	for n := a.suffix[base] + 1; ; n++ {
		id := fmt.Sprintf("%s-%d", base, n)
		if !a.used[id] {
			a.suffix[base] = n
			a.used[id] = true
			return id
		}
	}
}

func (a *anchors) Generate(value []byte, kind ast.NodeKind) []byte {
	return []byte(a.next(string(value)))
}

func (a *anchors) Put(value []byte) {
	a.used[string(value)] = true
}
