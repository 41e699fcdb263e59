package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSafeToken(t *testing.T) {
	tests := []struct {
		command string
		want    string
	}{
		{"show version", "show_version"},
		{"show ip route | include 10.0", "show_ip_route__include_10.0"},
		{"show running-config interface GigabitEthernet0/0", "show_running-config_interface_GigabitEthernet0_0"},
		{"show clock", "show_clock"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SafeToken(tt.command); got != tt.want {
			t.Errorf("SafeToken(%q) = %q, want %q", tt.command, got, tt.want)
		}
	}
}

func TestParsePhase(t *testing.T) {
	for in, want := range map[string]Phase{"pre": PhasePre, "POST": PhasePost, " Pre ": PhasePre} {
		got, err := ParsePhase(in)
		if err != nil || got != want {
			t.Errorf("ParsePhase(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParsePhase("aft"); err == nil {
		t.Error("ParsePhase accepted historical aft suffix")
	}
	if _, err := ParsePhase(""); err == nil {
		t.Error("ParsePhase accepted empty phase")
	}
}

func TestWriteSnapshotCreatesDirAndNamesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "CHG0012345")
	s := NewStore(dir)

	path, err := s.WriteSnapshot("10.0.0.1", PhasePre, "show version", "IOS 15.1\n")
	if err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if want := filepath.Join(dir, "10.0.0.1-show_version.pre"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	got, err := s.ReadSnapshot("10.0.0.1", PhasePre, "show version")
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if got != "IOS 15.1\n" {
		t.Errorf("content = %q", got)
	}

	// Directory creation is idempotent.
	if _, err := s.WriteSnapshot("10.0.0.1", PhasePre, "show clock", "12:00:00\n"); err != nil {
		t.Fatalf("second WriteSnapshot: %v", err)
	}
}

func TestWriteSnapshotOverwrites(t *testing.T) {
	s := NewStore(t.TempDir())

	if _, err := s.WriteSnapshot("10.0.0.1", PhasePost, "show clock", "first content\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.WriteSnapshot("10.0.0.1", PhasePost, "show clock", "second content\n"); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadSnapshot("10.0.0.1", PhasePost, "show clock")
	if err != nil {
		t.Fatal(err)
	}
	if got != "second content\n" {
		t.Errorf("content = %q, want overwrite not append", got)
	}
}

func TestReadSnapshotMissing(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.ReadSnapshot("10.0.0.1", PhasePre, "show version")
	if !errors.Is(err, ErrSnapshotMissing) {
		t.Errorf("err = %v, want ErrSnapshotMissing", err)
	}
}

func TestWriteConsolidatedPreservesOrder(t *testing.T) {
	s := NewStore(t.TempDir())
	outputs := []CommandOutput{
		{Command: "show version", Output: "IOS 15.1\n"},
		{Command: "show clock", Output: "12:00:00\n"},
		{Command: "show ip route", Output: "Gateway of last resort\n"},
	}

	path, err := s.WriteConsolidated("core-sw1", PhasePre, outputs)
	if err != nil {
		t.Fatalf("WriteConsolidated: %v", err)
	}
	if !strings.HasSuffix(path, "core-sw1.precheck") {
		t.Errorf("path = %q, want .precheck suffix", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, co := range outputs {
		header := "--- " + co.Command + " ---"
		if !strings.Contains(content, header) {
			t.Errorf("missing header %q", header)
		}
		if !strings.Contains(content, co.Output) {
			t.Errorf("missing output %q", co.Output)
		}
	}
	if strings.Index(content, "show version") > strings.Index(content, "show clock") {
		t.Error("command order not preserved")
	}
}

func TestLatestRunDir(t *testing.T) {
	parent := t.TempDir()
	older := filepath.Join(parent, "CHG001")
	newer := filepath.Join(parent, "CHG002")
	for _, d := range []string{older, newer} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	// Make modification order unambiguous.
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}

	got, err := LatestRunDir(parent)
	if err != nil {
		t.Fatalf("LatestRunDir: %v", err)
	}
	if got != newer {
		t.Errorf("latest = %q, want %q", got, newer)
	}

	if _, err := LatestRunDir(t.TempDir()); err == nil {
		t.Error("expected error for parent without run directories")
	}
}
