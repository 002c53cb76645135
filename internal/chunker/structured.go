package chunker

import (
	"encoding/json"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/membootio/memboot/internal/model"
)

var yamlKeyRe = regexp.MustCompile(`^(\S+?)\s*:`)

// chunkYAML emits one piece per top-level mapping key. The document is
// validated with the YAML parser first; invalid or non-mapping documents
// fall back to the window strategy. The key doubles as a synthetic heading
// so provenance survives re-serialization.
func chunkYAML(content string, opts Options) []Piece {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil || doc == nil {
		return window(content, opts)
	}

	lines := strings.Split(content, "\n")
	offs := lineOffsets(content)

	type keyPos struct {
		line int
		key  string
	}
	var keys []keyPos
	for i, line := range lines {
		if m := yamlKeyRe.FindStringSubmatch(line); m != nil {
			keys = append(keys, keyPos{line: i, key: m[1]})
		}
	}
	if len(keys) == 0 {
		return window(content, opts)
	}

	var pieces []Piece
	for i, kp := range keys {
		endLine := len(lines) - 1
		if i+1 < len(keys) {
			endLine = keys[i+1].line - 1
		}
		end := offs[endLine] + len(lines[endLine])
		if end > len(content) {
			end = len(content)
		}
		section := content[offs[kp.line]:end]
		if strings.TrimSpace(section) == "" {
			continue
		}
		pieces = append(pieces, Piece{
			Content:     section,
			Title:       kp.key,
			Kind:        model.KindStructuredEntry,
			StartOffset: offs[kp.line],
			EndOffset:   end,
		})
	}

	if len(pieces) == 0 {
		return window(content, opts)
	}
	return pieces
}

// chunkJSON emits one piece per top-level object key, in document order,
// each re-serialized with its key so the entry reads as a standalone
// object. Arrays, scalars, and malformed input fall back to the window.
func chunkJSON(content string, opts Options) []Piece {
	if !json.Valid([]byte(content)) {
		return window(content, opts)
	}

	dec := json.NewDecoder(strings.NewReader(content))
	tok, err := dec.Token()
	if err != nil {
		return window(content, opts)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return window(content, opts)
	}

	var pieces []Piece
	for dec.More() {
		start := int(dec.InputOffset())
		keyTok, err := dec.Token()
		if err != nil {
			return window(content, opts)
		}
		key, ok := keyTok.(string)
		if !ok {
			return window(content, opts)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return window(content, opts)
		}
		end := int(dec.InputOffset())

		serialized, err := json.MarshalIndent(map[string]json.RawMessage{key: raw}, "", "  ")
		if err != nil {
			continue
		}
		pieces = append(pieces, Piece{
			Content:     string(serialized),
			Title:       key,
			Kind:        model.KindStructuredEntry,
			StartOffset: start,
			EndOffset:   end,
		})
	}

	if len(pieces) == 0 {
		return window(content, opts)
	}
	return pieces
}
