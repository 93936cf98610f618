package utils

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestRandStringUsingMathRand(t *testing.T) {
	if got := RandStringUsingMathRand(0); got != "" {
		t.Errorf("length 0 should yield empty string, got %q", got)
	}
	if got := RandStringUsingMathRand(-3); got != "" {
		t.Errorf("negative length should yield empty string, got %q", got)
	}
	if got := RandStringUsingMathRand(16); len(got) != 16 {
		t.Errorf("length = %d, want 16", len(got))
	}
}

func TestStripDataURLPrefix(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"data:image/png;base64,aGVsbG8=", "aGVsbG8="},
		{"aGVsbG8=", "aGVsbG8="},
		{"data:no-comma", "data:no-comma"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := StripDataURLPrefix(tc.in); got != tc.want {
			t.Errorf("StripDataURLPrefix(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDecodeImagePayload(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47, 0xfb, 0xff}

	std := base64.StdEncoding.EncodeToString(raw)
	got, err := DecodeImagePayload(std)
	if err != nil || !bytes.Equal(got, raw) {
		t.Fatalf("standard alphabet: got %v, err %v", got, err)
	}

	urlSafe := base64.URLEncoding.EncodeToString(raw)
	got, err = DecodeImagePayload(urlSafe)
	if err != nil || !bytes.Equal(got, raw) {
		t.Fatalf("url-safe alphabet: got %v, err %v", got, err)
	}

	got, err = DecodeImagePayload("data:image/png;base64," + std)
	if err != nil || !bytes.Equal(got, raw) {
		t.Fatalf("data-url prefix: got %v, err %v", got, err)
	}

	got, err = DecodeImagePayload("  " + std + "\n")
	if err != nil || !bytes.Equal(got, raw) {
		t.Fatalf("surrounding whitespace: got %v, err %v", got, err)
	}

	if _, err := DecodeImagePayload("!!not base64!!"); err == nil {
		t.Fatalf("invalid payload must error")
	}
}
