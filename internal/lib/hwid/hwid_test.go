package hwid

import "testing"

func TestHash(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "typical fingerprint",
			raw:  "CPU-1234|MB-5678|DISK-9abc",
		},
		{
			name: "short fingerprint",
			raw:  "x",
		},
		{
			name: "unicode fingerprint",
			raw:  "железо-отпечаток",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Hash(tt.raw)
			if len(got) != HashWidth {
				t.Errorf("Hash() length = %d, want %d", len(got), HashWidth)
			}
			if got != Hash(tt.raw) {
				t.Error("Hash() is not deterministic")
			}
			for _, c := range got {
				if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
					t.Errorf("Hash() contains non-hex character %q", c)
					break
				}
			}
		})
	}
}

func TestHash_DifferentInputsProduceDifferentHashes(t *testing.T) {
	if Hash("machine-a") == Hash("machine-b") {
		t.Error("different fingerprints produced identical hashes")
	}
}
