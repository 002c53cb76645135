package chunker

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/membootio/memboot/internal/model"
)

// chunkGo emits one piece per top-level declaration, doc comments included.
// A parse failure degrades to the sliding window.
func chunkGo(content, path string, opts Options) []Piece {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return window(content, opts)
	}

	var pieces []Piece
	for _, decl := range file.Decls {
		pos := decl.Pos()
		var title string
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Doc != nil {
				pos = d.Doc.Pos()
			}
			title = "function " + d.Name.Name
		case *ast.GenDecl:
			if d.Doc != nil {
				pos = d.Doc.Pos()
			}
			title = genDeclTitle(d)
		default:
			continue
		}

		start := fset.Position(pos).Offset
		end := fset.Position(decl.End()).Offset
		if start < 0 || end > len(content) || start >= end {
			continue
		}
		pieces = append(pieces, Piece{
			Content:     content[start:end],
			Title:       title,
			Kind:        model.KindCodeUnit,
			StartOffset: start,
			EndOffset:   end,
		})
	}

	if len(pieces) == 0 {
		return window(content, opts)
	}
	return pieces
}

func genDeclTitle(d *ast.GenDecl) string {
	kind := strings.ToLower(d.Tok.String())
	if len(d.Specs) == 1 {
		switch s := d.Specs[0].(type) {
		case *ast.TypeSpec:
			return "type " + s.Name.Name
		case *ast.ValueSpec:
			if len(s.Names) > 0 {
				return fmt.Sprintf("%s %s", kind, s.Names[0].Name)
			}
		}
	}
	return kind + " block"
}

// chunkPython splits on top-level def/class blocks with a line scanner.
// Decorators attach to the block they precede; module-level statements not
// covered by any block are collected into a trailing module piece. The
// scanner cannot fail, so the only degradation is structureless input,
// which still yields a module piece.
func chunkPython(content string, opts Options) []Piece {
	lines := strings.Split(content, "\n")
	offs := lineOffsets(content)

	lineEnd := func(i int) int {
		end := offs[i] + len(lines[i])
		if end > len(content) {
			end = len(content)
		}
		return end
	}

	var pieces []Piece
	var moduleLines []string
	moduleStart, moduleEnd := -1, -1

	i := 0
	for i < len(lines) {
		line := lines[i]
		if isPyBlockStart(line) {
			title := pyTitle(lines, i)
			// The header may itself be a decorator run; find the def/class line.
			j := i
			for j < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[j]), "@") {
				j++
			}
			if j >= len(lines) || !isPyDefOrClass(lines[j]) {
				// Dangling decorators with no unit; treat as module code.
				moduleLines, moduleStart, moduleEnd = appendModuleLine(moduleLines, lines[i], moduleStart, moduleEnd, offs[i], lineEnd(i))
				i++
				continue
			}
			// Consume body: indented or blank lines after the header.
			end := j
			for k := j + 1; k < len(lines); k++ {
				t := strings.TrimSpace(lines[k])
				if t == "" || lines[k][0] == ' ' || lines[k][0] == '\t' {
					if t != "" {
						end = k
					}
					continue
				}
				break
			}
			pieces = append(pieces, Piece{
				Content:     content[offs[i]:lineEnd(end)],
				Title:       title,
				Kind:        model.KindCodeUnit,
				StartOffset: offs[i],
				EndOffset:   lineEnd(end),
			})
			i = end + 1
			// Skip the blank run that trailed the block.
			for i < len(lines) && strings.TrimSpace(lines[i]) == "" && !isPyBlockStart(lines[i]) {
				i++
			}
			continue
		}

		t := strings.TrimSpace(line)
		if t != "" && !strings.HasPrefix(t, "#") {
			moduleLines, moduleStart, moduleEnd = appendModuleLine(moduleLines, line, moduleStart, moduleEnd, offs[i], lineEnd(i))
		}
		i++
	}

	if len(moduleLines) > 0 {
		pieces = append(pieces, Piece{
			Content:     strings.Join(moduleLines, "\n"),
			Title:       "module",
			Kind:        model.KindCodeUnit,
			StartOffset: moduleStart,
			EndOffset:   moduleEnd,
		})
	}

	if len(pieces) == 0 {
		return window(content, opts)
	}
	return pieces
}

func isPyBlockStart(line string) bool {
	if len(line) == 0 || line[0] == ' ' || line[0] == '\t' {
		return false
	}
	return isPyDefOrClass(line) || strings.HasPrefix(line, "@")
}

func isPyDefOrClass(line string) bool {
	if len(line) == 0 || line[0] == ' ' || line[0] == '\t' {
		return false
	}
	return strings.HasPrefix(line, "def ") ||
		strings.HasPrefix(line, "async def ") ||
		strings.HasPrefix(line, "class ")
}

func pyTitle(lines []string, i int) string {
	for j := i; j < len(lines); j++ {
		line := lines[j]
		switch {
		case strings.HasPrefix(line, "def "), strings.HasPrefix(line, "async def "):
			return "function " + pyName(line)
		case strings.HasPrefix(line, "class "):
			return "class " + pyName(line)
		case strings.HasPrefix(strings.TrimSpace(line), "@"):
			continue
		}
		break
	}
	return "module"
}

func pyName(header string) string {
	header = strings.TrimPrefix(header, "async ")
	header = strings.TrimPrefix(header, "def ")
	header = strings.TrimPrefix(header, "class ")
	for i := 0; i < len(header); i++ {
		c := header[i]
		if c == '(' || c == ':' || c == ' ' {
			return header[:i]
		}
	}
	return strings.TrimSpace(header)
}

func appendModuleLine(acc []string, line string, start, end, lineStart, lineEnd int) ([]string, int, int) {
	if start < 0 {
		start = lineStart
	}
	if lineEnd > end {
		end = lineEnd
	}
	return append(acc, line), start, end
}
