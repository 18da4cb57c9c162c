package rider

import (
	"errors"
	"testing"
)

func TestExtractShareRefValidForms(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
	}{
		{"plain", "https://rider.live/fr/a/AbC123", "AbC123"},
		{"english path", "https://rider.live/en/a/tok-42", "tok-42"},
		{"leading at", "@https://rider.live/fr/a/AbC123", "AbC123"},
		{"tracking params", "https://rider.live/fr/a/AbC123?utm_source=sms&x=1", "AbC123"},
		{"trailing segment", "https://rider.live/fr/a/AbC123/map", "AbC123"},
		{"fragment", "https://rider.live/fr/a/AbC123#top", "AbC123"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := ExtractShareRef(tc.url)
			if err != nil {
				t.Fatalf("extract %q: %v", tc.url, err)
			}
			if ref.Token != tc.want {
				t.Fatalf("token = %q, want %q", ref.Token, tc.want)
			}
		})
	}
}

func TestExtractShareRefStripsAt(t *testing.T) {
	ref, err := ExtractShareRef("@https://rider.live/fr/a/XYZ")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if ref.RawURL != "https://rider.live/fr/a/XYZ" {
		t.Fatalf("raw url = %q, @ not stripped", ref.RawURL)
	}
}

func TestExtractShareRefWrongDomain(t *testing.T) {
	for _, url := range []string{
		"https://example.com/fr/a/AbC123",
		"http://rider.live/fr/a/AbC123",
		"rider.live/fr/a/AbC123",
		"",
	} {
		_, err := ExtractShareRef(url)
		if !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("extract %q: err = %v, want ErrInvalidURL", url, err)
		}
	}
}

func TestExtractShareRefMissingToken(t *testing.T) {
	for _, url := range []string{
		"https://rider.live",
		"https://rider.live/fr",
		"https://rider.live/fr/a/",
		"https://rider.live/fr/b/AbC123",
	} {
		_, err := ExtractShareRef(url)
		if !errors.Is(err, ErrInvalidURLFormat) {
			t.Fatalf("extract %q: err = %v, want ErrInvalidURLFormat", url, err)
		}
	}
}

func TestExtractShareRefQueryNotMatched(t *testing.T) {
	// /a/ appearing only in the query string must not count as a token.
	_, err := ExtractShareRef("https://rider.live/fr?next=/a/AbC123")
	if !errors.Is(err, ErrInvalidURLFormat) {
		t.Fatalf("err = %v, want ErrInvalidURLFormat", err)
	}
}
