package merge

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// encodingAliases maps the encoding names accepted in configuration to their
// x/text implementations. Names not listed here are resolved through the IANA
// index as a last resort.
var encodingAliases = map[string]encoding.Encoding{
	"cp932":        japanese.ShiftJIS,
	"windows-31j":  japanese.ShiftJIS,
	"shift-jis":    japanese.ShiftJIS,
	"shift_jis":    japanese.ShiftJIS,
	"sjis":         japanese.ShiftJIS,
	"euc-jp":       japanese.EUCJP,
	"eucjp":        japanese.EUCJP,
	"iso-2022-jp":  japanese.ISO2022JP,
	"latin-1":      charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"utf-16":       unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16le":     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be":     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

// ReadText reads the file at path in full and decodes it, trying defaultEnc
// first and then each entry of fallbacks in order. It returns the decoded text
// and the name of the encoding that succeeded. When every attempt fails the
// returned error is a *DecodeError listing the attempted encodings; the caller
// treats that as a per-file skip.
func ReadText(path string, defaultEnc string, fallbacks []string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("error reading file %s: %w", path, err)
	}

	attempts := make([]string, 0, len(fallbacks)+1)
	attempts = append(attempts, defaultEnc)
	attempts = append(attempts, fallbacks...)

	for _, name := range attempts {
		if text, ok := decodeAs(name, data); ok {
			return text, name, nil
		}
	}

	return "", "", &DecodeError{Path: path, Attempted: attempts}
}

// decodeAs attempts to decode data using the named encoding. An attempt fails
// if the name is unknown, the decoder errors, the decoder had to substitute
// replacement characters, or the result is not text (see isText).
func decodeAs(name string, data []byte) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))

	if normalized == "utf-8" || normalized == "utf8" {
		if !utf8.Valid(data) {
			return "", false
		}
		text := string(data)
		if !isText(text) {
			return "", false
		}
		return text, true
	}

	enc, ok := encodingAliases[normalized]
	if !ok {
		ianaEnc, err := ianaindex.IANA.Encoding(normalized)
		if err != nil || ianaEnc == nil {
			return "", false
		}
		enc = ianaEnc
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil || !utf8.Valid(out) {
		return "", false
	}
	// x/text decoders substitute U+FFFD for bytes they cannot map, so its
	// presence marks input this encoding could not actually decode.
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	text := string(out)
	if !isText(text) {
		return "", false
	}
	return text, true
}

// isText reports whether s is plausible text content. Control characters other
// than tab, newline, carriage return, and form feed mark binary data that no
// text encoding should accept, NUL being the usual giveaway.
func isText(s string) bool {
	for _, r := range s {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' && r != '\f' {
			return false
		}
	}
	return true
}
