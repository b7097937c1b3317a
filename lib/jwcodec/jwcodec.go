// Package jwcodec implements the credential transform the portal's
// login form applies in the browser (its `encodeInp` script). It is
// almost base64 but not quite: the padding decision looks at the byte
// *values* of a group, so a group whose second or third byte happens
// to be absent is padded the same way as one whose bytes are zero.
// The backend decodes with the matching inverse, so the quirk has to
// be reproduced exactly or logins fail.
package jwcodec

import "encoding/base64"

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/="

// Encode transforms the UTF-8 bytes of text into the portal's
// transport encoding. It is total: any input, including empty,
// produces a valid output.
func Encode(text string) string {
	data := []byte(text)
	out := make([]byte, 0, (len(data)+2)/3*4)

	for i := 0; i < len(data); i += 3 {
		b1 := data[i]
		var b2, b3 byte
		if i+1 < len(data) {
			b2 = data[i+1]
		}
		if i+2 < len(data) {
			b3 = data[i+2]
		}

		e1 := b1 >> 2
		e2 := ((b1 & 3) << 4) | (b2 >> 4)
		e3 := ((b2 & 15) << 2) | (b3 >> 6)
		e4 := b3 & 63

		// the legacy script keys padding off the byte value, not the
		// input length, so a literal 0x00 pads exactly like a missing byte
		if b2 == 0 {
			e3 = 64
			e4 = 64
		} else if b3 == 0 {
			e4 = 64
		}

		out = append(out, alphabet[e1], alphabet[e2], alphabet[e3], alphabet[e4])
	}

	return string(out)
}

// Decode is the standard base64 inverse. It exists for round-trip
// verification, the portal never sends encoded credentials back.
func Decode(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}

// EncodeCredentials joins the two encoded fields with the separator
// the login form uses for its single `encoded` field.
func EncodeCredentials(username, password string) string {
	return Encode(username) + "%%%" + Encode(password)
}
