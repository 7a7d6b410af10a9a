package common

import (
	"bytes"
	"testing"
)

func TestDecodeFromString(t *testing.T) {
	want := []byte{0xde, 0xad, 0xbe, 0xef}

	for _, in := range []string{"0XDEADBEEF", "0xdeadbeef", "deadbeef"} {
		got, err := DecodeFromString(in)
		if err != nil {
			t.Fatalf("DecodeFromString(%q): %v", in, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("DecodeFromString(%q) => %x != %x", in, got, want)
		}
	}

	if _, err := DecodeFromString("0xZZ"); err == nil {
		t.Errorf("expected an error for a non-hex string")
	}

	if EncodeToString(want) != "0XDEADBEEF" {
		t.Errorf("EncodeToString => %s", EncodeToString(want))
	}
}
