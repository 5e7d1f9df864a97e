package resolver

import (
	"strings"

	"github.com/vburojevic/espdecode/internal/domain"
)

// placeholderChars are stripped from the front of the directory. addr2line
// prints "??", stray line breaks and ":0" when it cannot map an address.
const placeholderChars = "?\r\n:0"

// ParseLocation splits resolver output of the form [prefix]dir/file:line.
// Everything after the last colon is the line text. Empty output yields
// false; anything else parses best-effort and never fails.
func ParseLocation(out string) (domain.Location, bool) {
	out = strings.TrimSpace(out)
	if out == "" {
		return domain.Location{}, false
	}

	name, line := out, ""
	if i := strings.LastIndex(out, ":"); i >= 0 {
		name, line = out[:i], strings.TrimSpace(out[i+1:])
	}

	dir, file := "", name
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		dir, file = name[:i], name[i+1:]
	}

	return domain.Location{
		Dir:  strings.TrimLeft(dir, placeholderChars),
		File: file,
		Line: line,
	}, true
}
