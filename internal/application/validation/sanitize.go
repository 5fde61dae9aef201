package validation

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxNameBytes = 255

var (
	reservedNames = map[string]struct{}{
		"con": {}, "prn": {}, "aux": {}, "nul": {},
		"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {}, "com6": {}, "com7": {}, "com8": {}, "com9": {},
		"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {}, "lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
	}
	allowedExtensions = map[string]struct{}{
		".pdf": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".mp3": {},
	}

	whitespaceRe  = regexp.MustCompile(`\s+`)
	underscoresRe = regexp.MustCompile(`_{2,}`)
)

// SanitizeFileName reduces a client supplied name to a safe, printable
// ASCII base name. ok is false when nothing usable is left.
func SanitizeFileName(original string) (string, bool) {
	s := strings.TrimSpace(original)
	if s == "" {
		return "", false
	}

	s = strings.ReplaceAll(s, "\\", "/")
	s = path.Base(s)
	if s == "." || s == ".." || s == "/" {
		return "", false
	}

	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	s = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return -1
		}
		if r < 0x20 || r > 0x7e {
			return -1
		}
		return r
	}, s)

	s = strings.Trim(s, ".")
	s = strings.TrimSpace(s)
	s = whitespaceRe.ReplaceAllString(s, "_")
	s = underscoresRe.ReplaceAllString(s, "_")

	if len(s) > maxNameBytes {
		ext := path.Ext(s)
		if len(ext) >= maxNameBytes {
			return "", false
		}
		s = s[:maxNameBytes-len(ext)] + ext
	}

	if s == "" || strings.Contains(s, "..") {
		return "", false
	}

	stem, _, _ := strings.Cut(s, ".")
	if _, bad := reservedNames[strings.ToLower(stem)]; bad {
		return "", false
	}

	if _, ok := allowedExtensions[strings.ToLower(path.Ext(s))]; !ok {
		return "", false
	}

	return s, true
}

func isMn(r rune) bool { return unicode.Is(unicode.Mn, r) }
