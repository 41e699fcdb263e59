package inventory

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadLinesSkipsBlanksPreservesOrder(t *testing.T) {
	path := writeFile(t, "commands.txt", "show version\n\n  show clock  \n\nshow ip route\n")

	got, err := LoadLines(path)
	if err != nil {
		t.Fatalf("LoadLines: %v", err)
	}
	want := []string{"show version", "show clock", "show ip route"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %v, want %v", got, want)
	}
}

func TestLoadHostsRejectsEmptyList(t *testing.T) {
	path := writeFile(t, "hosts.txt", "\n\n\n")
	if _, err := LoadHosts(path); err == nil {
		t.Error("expected error for empty host list")
	}

	if _, err := LoadHosts(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadCommands(t *testing.T) {
	path := writeFile(t, "CC_2960.txt", "show version\nshow vlan brief\n")
	got, err := LoadCommands(path)
	if err != nil {
		t.Fatalf("LoadCommands: %v", err)
	}
	if len(got) != 2 || got[0] != "show version" {
		t.Errorf("commands = %v", got)
	}
}

func TestCommandFileFor(t *testing.T) {
	file, err := CommandFileFor("ASR9K")
	if err != nil {
		t.Fatalf("CommandFileFor: %v", err)
	}
	if file != "C-ASR9K.txt" {
		t.Errorf("file = %q", file)
	}

	if _, err := CommandFileFor("juniper-mx"); err == nil {
		t.Error("expected error for unknown device type")
	}
}

func TestDeviceTypesStableOrder(t *testing.T) {
	first := DeviceTypes()
	second := DeviceTypes()
	if !reflect.DeepEqual(first, second) {
		t.Error("device type order not stable")
	}
	if len(first) != 10 {
		t.Errorf("device types = %v", first)
	}
}
