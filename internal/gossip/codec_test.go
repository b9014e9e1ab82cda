package gossip

import "testing"

func TestEncodeDecodeRumorRoundTrip(t *testing.T) {
	raw := EncodeRumor(40001, 40002, 3, "hello there")

	const want = "rumor:40001:{hello there,40002,3}"
	if raw != want {
		t.Fatalf("EncodeRumor = %q, want %q", raw, want)
	}

	msg, err := DecodeRumor(raw)
	if err != nil {
		t.Fatalf("DecodeRumor(%q): unexpected error: %v", raw, err)
	}
	if msg.Sender != 40001 || msg.Origin != 40002 || msg.Seq != 3 || msg.Text != "hello there" {
		t.Fatalf("DecodeRumor(%q) = %+v, want {40001 40002 3 \"hello there\"}", raw, msg)
	}
}

func TestDecodeRumorTextContainingCommaDesyncs(t *testing.T) {
	// A comma embedded in the text field shifts every field after it,
	// producing a malformed origin/seq rather than a correctly parsed
	// message. This is exactly why AppendLocal refuses to emit such text
	// (see ErrInvalidText) instead of relying on the decoder to cope.
	raw := "rumor:40001:{a,b,40002,5}"
	if _, err := DecodeRumor(raw); err == nil {
		t.Fatalf("DecodeRumor(%q): expected desync error, got nil", raw)
	}
}

func TestDecodeRumorMalformed(t *testing.T) {
	cases := []string{
		"rumor:abc:{text,1,2}",       // bad sender
		"rumor:1:text,1,2}",          // missing open brace
		"rumor:1:{text,1,2",          // missing close brace
		"rumor:1:{text,1}",           // too few fields
		"rumor:1:{text,abc,2}",       // bad origin
		"rumor:1:{text,1,abc}",       // bad seq
		"rumor:1",                    // missing body entirely
	}
	for _, raw := range cases {
		if _, err := DecodeRumor(raw); err == nil {
			t.Errorf("DecodeRumor(%q): expected error, got nil", raw)
		}
	}
}

func TestEncodeDecodeStatusRoundTrip(t *testing.T) {
	pairs := Digest{{Origin: 40001, Low: 5}, {Origin: 40000, Low: 2}}
	raw := EncodeStatus(40001, pairs)

	const want = "status:40001:{40001:5,40000:2}"
	if raw != want {
		t.Fatalf("EncodeStatus = %q, want %q", raw, want)
	}

	msg, err := DecodeStatus(raw)
	if err != nil {
		t.Fatalf("DecodeStatus(%q): unexpected error: %v", raw, err)
	}
	if msg.Sender != 40001 || len(msg.Pairs) != 2 {
		t.Fatalf("DecodeStatus(%q) = %+v", raw, msg)
	}
	if low, ok := msg.Pairs.Lookup(40000); !ok || low != 2 {
		t.Fatalf("DecodeStatus(%q).Pairs.Lookup(40000) = (%d, %v), want (2, true)", raw, low, ok)
	}
}

func TestEncodeDecodeStatusEmptyPairs(t *testing.T) {
	raw := EncodeStatus(40000, nil)
	if raw != "status:40000:{}" {
		t.Fatalf("EncodeStatus(nil) = %q, want %q", raw, "status:40000:{}")
	}

	msg, err := DecodeStatus(raw)
	if err != nil {
		t.Fatalf("DecodeStatus(%q): unexpected error: %v", raw, err)
	}
	if len(msg.Pairs) != 0 {
		t.Fatalf("DecodeStatus(%q).Pairs = %v, want empty", raw, msg.Pairs)
	}
}

func TestDecodeStatusMalformed(t *testing.T) {
	cases := []string{
		"status:abc:{1:2}",
		"status:1:{1-2}",
		"status:1:{1:abc}",
		"status:1:nobrace",
	}
	for _, raw := range cases {
		if _, err := DecodeStatus(raw); err == nil {
			t.Errorf("DecodeStatus(%q): expected error, got nil", raw)
		}
	}
}

func TestDecodeDispatch(t *testing.T) {
	rumor := EncodeRumor(1, 2, 3, "x")
	status := EncodeStatus(1, Digest{{Origin: 1, Low: 0}})

	if _, err := Decode(rumor); err != nil {
		t.Fatalf("Decode(rumor) error: %v", err)
	}
	if _, err := Decode(status); err != nil {
		t.Fatalf("Decode(status) error: %v", err)
	}
	if _, err := Decode("garbage"); err == nil {
		t.Fatalf("Decode(garbage) expected error, got nil")
	}
}
