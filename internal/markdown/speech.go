// Package markdown turns markdown documents into plain text suitable for
// speech synthesis.
package markdown

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/unicode/norm"
)

// Options controls extraction.
type Options struct {
	// KeepCode reads code blocks aloud instead of skipping them.
	KeepCode bool
}

var spaceRegex = regexp.MustCompile(`\s+`)

// ToSpeech extracts the speakable text of a markdown document. Headings,
// paragraphs and list items end in a sentence break; links keep their text
// and drop the URL; code and HTML blocks are skipped.
func ToSpeech(src []byte, opts Options) string {
	reader := text.NewReader(src)
	doc := goldmark.New().Parser().Parse(reader)

	w := walker{src: reader.Source(), opts: opts}
	w.walk(doc)
	return Normalize(w.buf.String())
}

// Normalize applies NFC and collapses runs of whitespace.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}

type walker struct {
	src  []byte
	opts Options
	buf  strings.Builder
}

func (w *walker) children(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		w.walk(c)
	}
}

func (w *walker) walk(node ast.Node) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock:
		if !w.opts.KeepCode {
			return
		}
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			w.buf.Write(seg.Value(w.src))
		}
		w.stop()

	case *ast.HTMLBlock, *ast.RawHTML:
		return

	case *ast.Text:
		w.buf.Write(n.Segment.Value(w.src))
		if n.SoftLineBreak() || n.HardLineBreak() {
			w.buf.WriteByte(' ')
		}

	case *ast.String:
		w.buf.Write(n.Value)

	case *ast.CodeSpan:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				w.buf.Write(t.Segment.Value(w.src))
			}
		}

	case *ast.Image:
		// Alt text only.
		w.children(n)

	case *ast.Heading, *ast.Paragraph, *ast.ListItem:
		w.children(n)
		w.stop()

	case *ast.ThematicBreak:
		w.stop()

	default:
		w.children(n)
	}
}

// stop ends the current sentence unless it already ends in punctuation.
func (w *walker) stop() {
	s := strings.TrimRightFunc(w.buf.String(), unicode.IsSpace)
	if s == "" {
		return
	}
	w.buf.Reset()
	w.buf.WriteString(s)
	switch s[len(s)-1] {
	case '.', '!', '?', ':', ';':
		w.buf.WriteByte(' ')
	default:
		w.buf.WriteString(". ")
	}
}
