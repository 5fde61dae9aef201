package validation

import "bytes"

var (
	pdfHeader  = []byte("%PDF-")
	pdfTrailer = []byte("%%EOF")
	pngIEND    = []byte{0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82}
	jpegEOI    = []byte{0xff, 0xd9}
)

// checkStructure returns a rejection reason, or "" when the payload looks
// well formed for its detected type.
func checkStructure(data []byte, mime string) string {
	switch mime {
	case MimePDF:
		if !bytes.Contains(data, pdfTrailer) {
			return "invalid PDF file: missing trailer"
		}
		if !bytes.HasPrefix(data, pdfHeader) {
			return "invalid PDF file: missing version header"
		}
	case MimePNG:
		if !bytes.Contains(data, pngIEND) {
			return "invalid PNG file: missing IEND chunk"
		}
	case MimeJPEG:
		if !bytes.HasSuffix(data, jpegEOI) {
			return "invalid JPEG file: missing end marker"
		}
	}
	return ""
}
