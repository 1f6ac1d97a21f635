package util

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+7 (900) 228-86-10": "79002288610",
		"89002288610":        "79002288610",
		"79002288610":        "79002288610",
		"  8 900 228 86 10 ": "79002288610",
		"8 (900) 2288":       "89002288", // too short for the 8->7 rewrite
	}

	for raw, want := range cases {
		if got := NormalizePhone(raw); got != want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestValidPhone(t *testing.T) {
	if !ValidPhone("79002288610") {
		t.Fatal("valid number rejected")
	}
	for _, bad := range []string{"", "9002288610", "790022886101", "89002288610"} {
		if ValidPhone(bad) {
			t.Fatalf("ValidPhone(%q) = true", bad)
		}
	}
}

func TestFormatPhone(t *testing.T) {
	if got := FormatPhone("79002288610"); got != "+7 (900) 228-86-10" {
		t.Fatalf("FormatPhone = %q", got)
	}
	if got := FormatPhone("123"); got != "123" {
		t.Fatalf("short input mangled: %q", got)
	}
}
