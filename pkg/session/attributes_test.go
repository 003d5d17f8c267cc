package session

import "testing"

func TestEncryptMode_String(t *testing.T) {
	tests := []struct {
		mode EncryptMode
		want string
	}{
		{mode: EncryptModeNone, want: "NONE"},
		{mode: EncryptModeBlowfish, want: "BLOWFISH"},
		{mode: EncryptMode(99), want: "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("EncryptMode(%d).String: got %q, want %q", int(tt.mode), got, tt.want)
		}
	}
}

func TestEncryptMode_IsValid(t *testing.T) {
	if !EncryptModeNone.IsValid() || !EncryptModeBlowfish.IsValid() {
		t.Error("defined modes reported invalid")
	}
	if EncryptMode(99).IsValid() {
		t.Error("undefined mode reported valid")
	}
}

func TestAttributes_String(t *testing.T) {
	a := Attributes{
		Mode:          EncryptModeBlowfish,
		Sequenced:     true,
		SessionScoped: true,
		EncryptAll:    false,
	}

	want := "(BLOWFISH true true false)"
	if got := a.String(); got != want {
		t.Errorf("String: got %q, want %q", got, want)
	}
}

func TestAttributes_ValueComparison(t *testing.T) {
	a := Attributes{Mode: EncryptModeBlowfish, Sequenced: true}
	b := Attributes{Mode: EncryptModeBlowfish, Sequenced: true}
	c := Attributes{Mode: EncryptModeNone}

	if a != b {
		t.Error("identical attributes compare unequal")
	}
	if a == c {
		t.Error("different attributes compare equal")
	}
}
