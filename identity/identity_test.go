package identity

import (
	"errors"
	"testing"
)

func TestFromProfilePath(t *testing.T) {
	tests := []struct {
		href    string
		want    Identity
		wantErr error
	}{
		{"/evil_bot", "@evil_bot", nil},
		{"/ real_person ", "@real_person", nil},
		{"/", "", ErrEmpty},
		{"", "", ErrEmpty},
		{"/evil_bot/status/123", "", ErrSeparator},
		{"/evil_bot/photo", "", ErrSeparator},
	}
	for _, tt := range tests {
		got, err := FromProfilePath(tt.href)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("FromProfilePath(%q) err = %v, want %v", tt.href, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("FromProfilePath(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}

func TestFromText(t *testing.T) {
	tests := []struct {
		text    string
		want    Identity
		wantErr error
	}{
		{"  @evil_bot\n", "@evil_bot", nil},
		{"Evil Bot", "", ErrNoMarker},
		{"", "", ErrNoMarker},
		{"@", "", ErrEmpty},
		{"@a/b", "", ErrSeparator},
	}
	for _, tt := range tests {
		got, err := FromText(tt.text)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("FromText(%q) err = %v, want %v", tt.text, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("FromText(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestOf_Deterministic(t *testing.T) {
	for _, id := range []Identity{"@evil_bot", "@real_person", "@Ünïcode", "@x"} {
		a, b := Of(id), Of(id)
		if a != b {
			t.Errorf("Of(%q) not deterministic: %s vs %s", id, a, b)
		}
		if len(a) != 64 {
			t.Errorf("Of(%q) length = %d, want 64", id, len(a))
		}
	}
}

func TestOf_KnownDigest(t *testing.T) {
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Of("abc"); string(got) != want {
		t.Errorf("Of(abc) = %s, want %s", got, want)
	}
}

func TestOf_NoCaseFolding(t *testing.T) {
	if Of("@Evil_Bot") == Of("@evil_bot") {
		t.Error("fingerprints of differently cased handles must differ")
	}
}
