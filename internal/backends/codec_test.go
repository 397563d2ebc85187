package backends

import (
	"bytes"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"string", "hello", "hello"},
		{"bool", true, true},
		{"bytes", []byte{1, 2, 3}, []byte{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := encodeValue(tt.in)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := decodeValue(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if b, ok := tt.want.([]byte); ok {
				gb, ok := got.([]byte)
				if !ok || !bytes.Equal(gb, b) {
					t.Errorf("round trip = %v (%T), want %v", got, got, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("round trip = %v (%T), want %v", got, got, tt.want)
			}
		})
	}
}

func TestDecodeValueRejectsGarbage(t *testing.T) {
	if _, err := decodeValue([]byte{0xc1}); err == nil {
		t.Error("decode of reserved byte succeeded, want error")
	}
}
