package sim

import (
	"strings"

	"noiser/core"
)

// shades maps brightness 0..9 to a character
const shades = " .:-=+*#%@"

// Render draws a frame as five lines of brightness characters, each cell
// doubled horizontally to look square in a terminal
func Render(f core.Frame) string {
	var b strings.Builder
	for y := range f {
		for x := range f[y] {
			level := min(f[y][x], core.MaxLevel)
			b.WriteByte(shades[level])
			b.WriteByte(shades[level])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseButtons reads a button command: "a", "b", "ab" hold buttons, "-"
// releases both. ok is false for anything else.
func ParseButtons(s string) (a, b, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a":
		return true, false, true
	case "b":
		return false, true, true
	case "ab", "ba":
		return true, true, true
	case "-":
		return false, false, true
	}
	return false, false, false
}
