package main

import "testing"

func TestParseArgsThreePositional(t *testing.T) {
	cfg, err := parseArgs([]string{"chatnode", "1", "3", "9000"})
	if err != nil {
		t.Fatalf("parseArgs: unexpected error: %v", err)
	}
	if cfg.Index != 1 || cfg.ClusterSize != 3 || cfg.TCPPort != 9000 || cfg.IntrospectPort != 0 {
		t.Fatalf("cfg = %+v, want {Index:1 ClusterSize:3 TCPPort:9000 IntrospectPort:0}", cfg)
	}
}

func TestParseArgsFourPositionalEnablesIntrospect(t *testing.T) {
	cfg, err := parseArgs([]string{"chatnode", "0", "2", "9000", "9100"})
	if err != nil {
		t.Fatalf("parseArgs: unexpected error: %v", err)
	}
	if cfg.IntrospectPort != 9100 {
		t.Fatalf("IntrospectPort = %d, want 9100", cfg.IntrospectPort)
	}
}

func TestParseArgsWrongCountFails(t *testing.T) {
	cases := [][]string{
		{"chatnode"},
		{"chatnode", "1"},
		{"chatnode", "1", "2"},
		{"chatnode", "1", "2", "3", "4", "5"},
	}
	for _, argv := range cases {
		if _, err := parseArgs(argv); err == nil {
			t.Errorf("parseArgs(%v): expected error, got nil", argv)
		}
	}
}

func TestParseArgsNonNumericFails(t *testing.T) {
	if _, err := parseArgs([]string{"chatnode", "a", "2", "9000"}); err == nil {
		t.Fatalf("parseArgs with non-numeric index: expected error, got nil")
	}
}

func TestParseArgsRejectsInvalidConfig(t *testing.T) {
	// index out of range for the given cluster size must surface Validate's
	// error through parseArgs.
	if _, err := parseArgs([]string{"chatnode", "3", "2", "9000"}); err == nil {
		t.Fatalf("parseArgs with out-of-range index: expected error, got nil")
	}
}
