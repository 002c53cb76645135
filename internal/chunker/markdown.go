package chunker

import (
	"regexp"
	"strings"

	"github.com/membootio/memboot/internal/model"
)

var headingRe = regexp.MustCompile(`^(#{1,3})\s+(.+)$`)

// chunkMarkdown splits at heading boundaries. A heading opens a new section
// when its level is at or above the level of the most recent heading, so a
// subheading descends into its parent's chunk but its later siblings each
// start their own. Content before the first heading becomes its own piece.
func chunkMarkdown(content string, opts Options) []Piece {
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
	secStart := -1
	secTitle := ""
	lastContent := -1
	lastLevel := 0

	flush := func() {
		if secStart < 0 || lastContent < secStart {
			return
		}
		text := content[offs[secStart]:lineEnd(lastContent)]
		if strings.TrimSpace(text) == "" {
			return
		}
		pieces = append(pieces, Piece{
			Content:     text,
			Title:       secTitle,
			Kind:        model.KindHeadingSection,
			StartOffset: offs[secStart],
			EndOffset:   lineEnd(lastContent),
		})
	}

	sawHeading := false
	for i, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			if !sawHeading || level <= lastLevel {
				flush()
				secStart = i
				secTitle = strings.TrimSpace(m[2])
			}
			sawHeading = true
			lastLevel = level
			lastContent = i
			continue
		}
		if secStart < 0 && strings.TrimSpace(line) != "" {
			// Preamble before the first heading.
			secStart = i
			secTitle = ""
		}
		if strings.TrimSpace(line) != "" {
			lastContent = i
		}
	}
	flush()

	if !sawHeading {
		return window(content, opts)
	}
	if len(pieces) == 0 {
		return window(content, opts)
	}
	return pieces
}
