package validation

import (
	"bytes"
	"strings"

	"file-manager-api/internal/domain/file"
)

const (
	MimePDF  = "application/pdf"
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeMP3  = "audio/mpeg"
)

type signature struct {
	mime     string
	kind     file.ContentType
	prefixes [][]byte
}

// signatures is matched in order; the first prefix hit wins.
var signatures = []signature{
	{
		mime: MimePDF, kind: file.ContentTypePDF,
		prefixes: [][]byte{{0x25, 0x50, 0x44, 0x46}},
	},
	{
		mime: MimePNG, kind: file.ContentTypePNG,
		prefixes: [][]byte{{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}},
	},
	{
		mime: MimeJPEG, kind: file.ContentTypeJPG,
		prefixes: [][]byte{
			{0xff, 0xd8, 0xff, 0xe0},
			{0xff, 0xd8, 0xff, 0xe1},
			{0xff, 0xd8, 0xff, 0xe2},
			{0xff, 0xd8, 0xff, 0xe3},
			{0xff, 0xd8, 0xff, 0xdb},
			{0xff, 0xd8, 0xff, 0xee},
		},
	},
	{
		mime: MimeMP3, kind: file.ContentTypeMP3,
		prefixes: [][]byte{
			{0x49, 0x44, 0x33},
			{0xff, 0xfb},
			{0xff, 0xf3},
			{0xff, 0xf2},
		},
	},
}

var mimeAliases = map[string]string{
	"image/jpg": MimeJPEG,
	"audio/mp3": MimeMP3,
}

func detect(data []byte) (signature, bool) {
	for _, sig := range signatures {
		for _, p := range sig.prefixes {
			if bytes.HasPrefix(data, p) {
				return sig, true
			}
		}
	}
	return signature{}, false
}

// NormalizeMime lowercases a media type, drops its parameters and
// resolves the known aliases.
func NormalizeMime(m string) string {
	m, _, _ = strings.Cut(m, ";")
	m = strings.ToLower(strings.TrimSpace(m))
	if canonical, ok := mimeAliases[m]; ok {
		return canonical
	}
	return m
}
