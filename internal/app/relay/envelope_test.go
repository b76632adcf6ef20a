package relay

import "testing"

func TestParseInbound(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "valid", raw: `{"message":"hello"}`, want: "hello"},
		{name: "empty text", raw: `{"message":""}`, want: ""},
		{name: "extra fields ignored", raw: `{"message":"hi","ts":1}`, want: "hi"},
		{name: "missing message field", raw: `{"text":"hi"}`, wantErr: true},
		{name: "not json", raw: `hello`, wantErr: true},
		{name: "wrong type", raw: `{"message":42}`, wantErr: true},
		{name: "empty object", raw: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInbound([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseInbound(%q) succeeded, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseInbound(%q) failed: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseInbound(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

// The encoded field names are the recipients' wire contract.
func TestEnvelopeWireFormat(t *testing.T) {
	payload, err := Envelope{Sender: "Alice", Text: "hello"}.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	want := `{"sender":"Alice","text":"hello"}`
	if string(payload) != want {
		t.Errorf("encoded envelope = %s, want %s", payload, want)
	}
}
