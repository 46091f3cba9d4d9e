package internal

import "testing"

func TestParseLogMode(t *testing.T) {
	tests := []struct {
		in   string
		want LogMode
	}{
		{"", LogNormal},
		{"quiet", LogQuiet},
		{" Verbose ", LogVerbose},
		{"DEBUG", LogDebug},
		{"loud", LogNormal},
	}
	for _, tt := range tests {
		if got := ParseLogMode(tt.in); got != tt.want {
			t.Errorf("ParseLogMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogModeOrder(t *testing.T) {
	if !(LogQuiet < LogNormal && LogNormal < LogVerbose && LogVerbose < LogDebug) {
		t.Fatal("log modes out of order")
	}
}

func TestSetLogMode(t *testing.T) {
	old := CurrentLogMode()
	t.Cleanup(func() { SetLogMode(old) })

	SetLogMode(LogDebug)
	if got := CurrentLogMode(); got != LogDebug {
		t.Fatalf("CurrentLogMode() = %v, want debug", got)
	}
	if got := LogDebug.String(); got != "debug" {
		t.Fatalf("String() = %q, want debug", got)
	}
}
