package extract

import (
	"fmt"
	"regexp"
	"strings"
)

const maxBaseLength = 50

var (
	illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// sanitizeName converts a raw name-column value into a filesystem-safe base
// name. Returns "" when nothing usable is left.
func sanitizeName(raw string) string {
	clean := strings.TrimSpace(raw)
	clean = illegalChars.ReplaceAllString(clean, "")
	clean = whitespace.ReplaceAllString(clean, "_")
	if runes := []rune(clean); len(runes) > maxBaseLength {
		clean = string(runes[:maxBaseLength])
	}
	return strings.Trim(clean, "_")
}

// namer hands out unique output filenames in encounter order. Colliding base
// names get _1, _2, … suffixes, first come first served.
type namer struct {
	used map[string]struct{}
}

func newNamer() *namer {
	return &namer{used: make(map[string]struct{})}
}

func (n *namer) next(img Image) string {
	base := sanitizeName(img.Name)
	if base == "" {
		base = fmt.Sprintf("image_%d", img.Row)
	}

	name := base + "." + img.Ext
	if _, taken := n.used[name]; !taken {
		n.used[name] = struct{}{}
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d.%s", base, i, img.Ext)
		if _, taken := n.used[candidate]; !taken {
			n.used[candidate] = struct{}{}
			return candidate
		}
	}
}
