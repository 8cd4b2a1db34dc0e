package hexfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeUpper(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
		want string
	}{
		{"empty", nil, ""},
		{"single byte", []byte{0x0f}, "0F"},
		{"all nibbles", []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}, "0123456789ABCDEF"},
		{"zero bytes", []byte{0x00, 0x00}, "0000"},
		{"high bytes", []byte{0xff, 0xfe}, "FFFE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeUpper(tt.src))
		})
	}
}

func TestEncodeLower(t *testing.T) {
	assert.Equal(t, "0123456789abcdef", EncodeLower([]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}))
	assert.Equal(t, "", EncodeLower(nil))
}
