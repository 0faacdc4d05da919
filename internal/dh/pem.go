package dh

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrMalformed is returned when PEM or DER content cannot be parsed
// structurally (spec's Malformed kind, mapped to IOError on the wire).
var ErrMalformed = errors.New("dh: malformed")

// errTrailingDER is joined into ErrMalformed when a DER blob decodes but
// leaves unexpected trailing bytes.
var errTrailingDER = errors.New("trailing bytes after DER structure")

func errJoinMalformed(err error) error {
	return errors.Join(ErrMalformed, err)
}

const pemLineWidth = 64

// toPEM base64-encodes data and wraps it between header and footer lines,
// with the base64 body line-wrapped at 64 columns (spec §4.7).
func toPEM(data []byte, header, footer string) string {
	encoded := base64.StdEncoding.EncodeToString(data)

	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for i := 0; i < len(encoded); i += pemLineWidth {
		end := i + pemLineWidth
		if end > len(encoded) {
			end = len(encoded)
		}
		b.WriteString(encoded[i:end])
		b.WriteByte('\n')
	}
	b.WriteString(footer)
	return b.String()
}

// fromPEM locates header and footer within text and base64-decodes the
// content between them, ignoring whitespace (spec §4.7). It fails with
// ErrMalformed if either line is missing or the content does not decode.
func fromPEM(text, header, footer string) ([]byte, error) {
	start := strings.Index(text, header)
	if start < 0 {
		return nil, errors.Join(ErrMalformed, errors.New("missing header"))
	}
	start += len(header)

	end := strings.Index(text[start:], footer)
	if end < 0 {
		return nil, errors.Join(ErrMalformed, errors.New("missing footer"))
	}
	body := text[start : start+end]

	body = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return -1
		default:
			return r
		}
	}, body)

	decoded, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	return decoded, nil
}
