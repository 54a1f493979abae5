package translations

import "testing"

func TestT(t *testing.T) {
	if got := T(Hausa, "general_welcome"); got != "Barka da zuwa FiCore" {
		t.Fatalf("hausa = %q", got)
	}
	if got := T(English, "general_welcome"); got != "Welcome to FiCore" {
		t.Fatalf("english = %q", got)
	}
	// Unknown language falls back to English.
	if got := T("fr", "general_welcome"); got != "Welcome to FiCore" {
		t.Fatalf("fallback = %q", got)
	}
	// Missing key surfaces the key itself.
	if got := T(English, "no_such_key"); got != "no_such_key" {
		t.Fatalf("missing key = %q", got)
	}
}

func TestTablesMirrorEachOther(t *testing.T) {
	en, ha := Table(English), Table(Hausa)
	if len(en) != len(ha) {
		t.Fatalf("table sizes differ: %d en, %d ha", len(en), len(ha))
	}
	for key := range en {
		if _, ok := ha[key]; !ok {
			t.Errorf("key %q missing from hausa table", key)
		}
	}
}

func TestSupported(t *testing.T) {
	if !Supported("en") || !Supported("ha") {
		t.Fatal("core languages unsupported")
	}
	if Supported("fr") {
		t.Fatal("unknown language supported")
	}
}
