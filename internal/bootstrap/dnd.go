package bootstrap

import (
	"strings"
	"unicode"
)

// SplitDropPayload parses a raw drag-and-drop payload into file paths.
// Paths are separated by whitespace and a path containing spaces is
// wrapped in braces: `{/home/u/My Talk.mp4} /tmp/b.wav`. An unclosed
// brace keeps everything up to the end of the payload as one path.
func SplitDropPayload(raw string) []string {
	var paths []string
	var current strings.Builder
	inBrace := false

	flush := func() {
		if current.Len() == 0 {
			return
		}
		paths = append(paths, current.String())
		current.Reset()
	}

	for _, r := range raw {
		switch {
		case r == '{' && !inBrace:
			inBrace = true
		case r == '}' && inBrace:
			inBrace = false
			flush()
		case unicode.IsSpace(r) && !inBrace:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return paths
}
