package chunker

import (
	"strings"
	"testing"

	"github.com/membootio/memboot/internal/model"
)

func TestChunkEmptyInput(t *testing.T) {
	for _, content := range []string{"", "   \n\t  "} {
		if pieces := Chunk(content, "", "a.txt", DefaultOptions()); len(pieces) != 0 {
			t.Errorf("empty input %q yielded %d pieces", content, len(pieces))
		}
	}
}

func TestSniffType(t *testing.T) {
	cases := map[string]string{
		"main.go":    "go",
		"app.py":     "python",
		"README.md":  "markdown",
		"conf.yaml":  "yaml",
		"conf.yml":   "yaml",
		"data.json":  "json",
		"notes.txt":  "text",
		"Dockerfile": "text",
	}
	for path, want := range cases {
		if got := SniffType(path); got != want {
			t.Errorf("SniffType(%q): got %q, want %q", path, got, want)
		}
	}
}

func TestWindowCoversEveryByte(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 400; i++ {
		sb.WriteString("word ")
	}
	content := sb.String()
	opts := Options{MaxTokens: 20, OverlapTokens: 4}

	pieces := Chunk(content, "text", "a.txt", opts)
	if len(pieces) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(pieces))
	}

	covered := make([]bool, len(content))
	prevStart := -1
	for _, p := range pieces {
		if p.Kind != model.KindWindow {
			t.Errorf("window piece kind: %s", p.Kind)
		}
		if p.Content != content[p.StartOffset:p.EndOffset] {
			t.Error("piece content does not match its offsets")
		}
		if p.StartOffset <= prevStart {
			t.Errorf("window starts not increasing: %d after %d", p.StartOffset, prevStart)
		}
		prevStart = p.StartOffset
		for i := p.StartOffset; i < p.EndOffset; i++ {
			covered[i] = true
		}
	}
	for i, ok := range covered {
		if !ok {
			t.Fatalf("byte %d not covered by any window", i)
		}
	}
}

func TestWindowNeverSplitsTokens(t *testing.T) {
	content := strings.Repeat("alpha beta gamma delta ", 100)
	pieces := Chunk(content, "text", "a.txt", Options{MaxTokens: 10, OverlapTokens: 2})

	for _, p := range pieces {
		if p.EndOffset < len(content) {
			// The byte before or at the break must be whitespace.
			if !isSpace(content[p.EndOffset]) && !isSpace(content[p.EndOffset-1]) {
				t.Errorf("break at %d splits a token: %q", p.EndOffset,
					content[p.EndOffset-3:p.EndOffset+3])
			}
		}
	}
}

func TestWindowOversizedTokenKeptWhole(t *testing.T) {
	content := strings.Repeat("x", 500)
	pieces := Chunk(content, "text", "a.txt", Options{MaxTokens: 10, OverlapTokens: 2})
	if len(pieces) != 1 {
		t.Fatalf("oversized single token should stay whole, got %d pieces", len(pieces))
	}
	if pieces[0].Content != content {
		t.Error("oversized token truncated")
	}
}

func TestChunkGoDeclarations(t *testing.T) {
	src := `package demo

import "fmt"

// Greet says hello.
func Greet(name string) {
	fmt.Println("hello", name)
}

// Config holds settings.
type Config struct {
	Name string
}
`
	pieces := Chunk(src, "", "demo.go", DefaultOptions())
	if len(pieces) != 3 {
		t.Fatalf("expected 3 pieces (import, func, type), got %d", len(pieces))
	}

	var fn, typ *Piece
	for i := range pieces {
		switch pieces[i].Title {
		case "function Greet":
			fn = &pieces[i]
		case "type Config":
			typ = &pieces[i]
		}
	}
	if fn == nil {
		t.Fatal("function piece missing")
	}
	if !strings.Contains(fn.Content, "// Greet says hello.") {
		t.Error("doc comment not attached to function piece")
	}
	if fn.Kind != model.KindCodeUnit {
		t.Errorf("kind: got %s", fn.Kind)
	}
	if typ == nil || !strings.Contains(typ.Content, "Name string") {
		t.Error("type piece missing or incomplete")
	}
	if src[fn.StartOffset:fn.EndOffset] != fn.Content {
		t.Error("offsets do not frame the content")
	}
}

func TestChunkGoInvalidFallsBack(t *testing.T) {
	pieces := Chunk("this is not go code at all {{{", "go", "bad.go", DefaultOptions())
	if len(pieces) == 0 {
		t.Fatal("fallback produced nothing")
	}
	if pieces[0].Kind != model.KindWindow {
		t.Errorf("expected window fallback, got %s", pieces[0].Kind)
	}
}

func TestChunkPythonBlocks(t *testing.T) {
	src := `import os

CONST = 1

def first(x):
    return x + 1

@decorator
def second():
    pass

class Thing:
    def method(self):
        return 2
`
	pieces := Chunk(src, "", "app.py", DefaultOptions())

	titles := make([]string, len(pieces))
	for i, p := range pieces {
		titles[i] = p.Title
	}

	want := []string{"function first", "function second", "class Thing", "module"}
	if len(pieces) != len(want) {
		t.Fatalf("pieces: got %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("piece %d title: got %q, want %q", i, titles[i], want[i])
		}
	}

	// Decorator belongs to its function.
	if !strings.HasPrefix(pieces[1].Content, "@decorator") {
		t.Errorf("decorator not attached: %q", pieces[1].Content)
	}
	// Nested method stays inside the class piece.
	if !strings.Contains(pieces[2].Content, "def method") {
		t.Error("method not inside class piece")
	}
	// Module leftovers collect import and constant.
	if !strings.Contains(pieces[3].Content, "import os") || !strings.Contains(pieces[3].Content, "CONST = 1") {
		t.Errorf("module piece incomplete: %q", pieces[3].Content)
	}
}

func TestChunkMarkdownSections(t *testing.T) {
	src := `Intro paragraph.

# Setup

Install the thing.

## Details

More depth here.

# Usage

Run the thing.
`
	pieces := Chunk(src, "", "README.md", DefaultOptions())
	if len(pieces) != 3 {
		t.Fatalf("expected preamble + 2 top sections, got %d", len(pieces))
	}

	if pieces[0].Title != "" || !strings.Contains(pieces[0].Content, "Intro paragraph.") {
		t.Errorf("preamble piece: %+v", pieces[0])
	}
	if pieces[1].Title != "Setup" {
		t.Errorf("section title: got %q", pieces[1].Title)
	}
	// The nested ## heading accumulates into its parent.
	if !strings.Contains(pieces[1].Content, "## Details") || !strings.Contains(pieces[1].Content, "More depth here.") {
		t.Errorf("nested section not accumulated: %q", pieces[1].Content)
	}
	if pieces[2].Title != "Usage" || !strings.Contains(pieces[2].Content, "Run the thing.") {
		t.Errorf("second section: %+v", pieces[2])
	}
	for _, p := range pieces {
		if p.Kind != model.KindHeadingSection {
			t.Errorf("kind: got %s", p.Kind)
		}
	}
}

func TestChunkMarkdownSiblingSubheadings(t *testing.T) {
	src := `# Guide

Overview text.

## Install

Get the binary.

## Configure

Edit the file.
`
	pieces := Chunk(src, "", "guide.md", DefaultOptions())
	if len(pieces) != 2 {
		t.Fatalf("expected 2 pieces, got %d", len(pieces))
	}

	// The first subheading descends into the parent section; its sibling
	// starts a chunk of its own.
	if pieces[0].Title != "Guide" || !strings.Contains(pieces[0].Content, "## Install") {
		t.Errorf("parent section: %+v", pieces[0])
	}
	if strings.Contains(pieces[0].Content, "Edit the file.") {
		t.Errorf("sibling content leaked into parent: %q", pieces[0].Content)
	}
	if pieces[1].Title != "Configure" || !strings.Contains(pieces[1].Content, "Edit the file.") {
		t.Errorf("sibling section: %+v", pieces[1])
	}
}

func TestChunkMarkdownNoHeadings(t *testing.T) {
	pieces := Chunk("just some prose\nwith no headings\n", "markdown", "n.md", DefaultOptions())
	if len(pieces) != 1 || pieces[0].Kind != model.KindWindow {
		t.Errorf("expected window fallback, got %+v", pieces)
	}
}

func TestChunkYAMLTopLevelKeys(t *testing.T) {
	src := `server:
  host: localhost
  port: 8080
database:
  url: sqlite://x.db
`
	pieces := Chunk(src, "", "conf.yaml", DefaultOptions())
	if len(pieces) != 2 {
		t.Fatalf("expected 2 pieces, got %d", len(pieces))
	}
	if pieces[0].Title != "server" || pieces[1].Title != "database" {
		t.Errorf("titles: %q, %q", pieces[0].Title, pieces[1].Title)
	}
	if !strings.Contains(pieces[0].Content, "port: 8080") {
		t.Errorf("nested content missing: %q", pieces[0].Content)
	}
	if pieces[0].Kind != model.KindStructuredEntry {
		t.Errorf("kind: got %s", pieces[0].Kind)
	}
}

func TestChunkYAMLInvalidFallsBack(t *testing.T) {
	pieces := Chunk(":\n  - broken: [unclosed", "yaml", "bad.yaml", DefaultOptions())
	if len(pieces) == 0 || pieces[0].Kind != model.KindWindow {
		t.Errorf("expected window fallback, got %+v", pieces)
	}
}

func TestChunkJSONTopLevelKeys(t *testing.T) {
	src := `{
  "name": "demo",
  "dependencies": {
    "left": "1.0.0"
  }
}`
	pieces := Chunk(src, "", "package.json", DefaultOptions())
	if len(pieces) != 2 {
		t.Fatalf("expected 2 pieces, got %d", len(pieces))
	}
	if pieces[0].Title != "name" || pieces[1].Title != "dependencies" {
		t.Errorf("key order not preserved: %q, %q", pieces[0].Title, pieces[1].Title)
	}
	if !strings.Contains(pieces[1].Content, `"left"`) {
		t.Errorf("value missing: %q", pieces[1].Content)
	}
}

func TestChunkJSONArrayFallsBack(t *testing.T) {
	pieces := Chunk(`[1, 2, 3]`, "json", "a.json", DefaultOptions())
	if len(pieces) == 0 || pieces[0].Kind != model.KindWindow {
		t.Errorf("expected window fallback for top-level array, got %+v", pieces)
	}
}
