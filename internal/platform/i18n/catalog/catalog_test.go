package catalog

import "testing"

func TestLocalesStartWithBase(t *testing.T) {
	got := Locales()
	if len(got) < 2 {
		t.Fatalf("expected at least two locales, got %v", got)
	}
	if got[0] != BaseLocale {
		t.Fatalf("expected base locale first, got %v", got)
	}
}

func TestEveryLocaleDefinesBaseKeys(t *testing.T) {
	for _, locale := range Locales() {
		for key := range locales[BaseLocale] {
			if _, ok := locales[locale][key]; !ok {
				t.Errorf("locale %s missing key %q", locale, key)
			}
		}
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", BaseLocale},
		{"en-US", BaseLocale},
		{"pt-BR", "pt-BR"},
		{"pt", "pt-BR"},
		{"not a tag!", BaseLocale},
		{"ja-JP", BaseLocale},
	}
	for _, tc := range tests {
		if got := Match(tc.in); got != tc.want {
			t.Errorf("Match(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMessageFormatsArgs(t *testing.T) {
	got := Message("pt-BR", "motd.fetch_failed", "timeout")
	if got != "Falha ao buscar mensagem: timeout" {
		t.Fatalf("unexpected message %q", got)
	}
	got = Message("en-US", "motd.fetch_failed", "timeout")
	if got != "Failed to fetch message: timeout" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestMessageFallsBackToKey(t *testing.T) {
	if got := Message("pt-BR", "missing.key"); got != "missing.key" {
		t.Fatalf("expected key fallback, got %q", got)
	}
	if Has("pt-BR", "missing.key") {
		t.Fatal("expected missing key to be absent")
	}
}
