// Package hexfmt converts raw byte buffers to hexadecimal text.
//
// The symbol-store identifier format wants upper-case digits, which
// encoding/hex does not produce.
package hexfmt

const (
	charsUpper = "0123456789ABCDEF"
	charsLower = "0123456789abcdef"
)

func encode(chars string, src []byte) string {
	dst := make([]byte, len(src)*2)
	for i, b := range src {
		dst[i*2] = chars[b>>4]
		dst[i*2+1] = chars[b&0x0f]
	}
	return string(dst)
}

// EncodeUpper returns the upper-case hex encoding of src.
func EncodeUpper(src []byte) string {
	return encode(charsUpper, src)
}

// EncodeLower returns the lower-case hex encoding of src.
func EncodeLower(src []byte) string {
	return encode(charsLower, src)
}
