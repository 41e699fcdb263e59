// Package snapshot persists captured command output for audit runs. Each
// snapshot is keyed by (host, command, phase) and maps to exactly one file;
// writing the same key again replaces the previous content.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrSnapshotMissing is returned when a snapshot doesn't exist.
var ErrSnapshotMissing = errors.New("snapshot missing")

// Phase identifies which side of a change window a capture belongs to.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// ParsePhase validates a phase tag supplied by the caller.
func ParsePhase(s string) (Phase, error) {
	switch Phase(strings.ToLower(strings.TrimSpace(s))) {
	case PhasePre:
		return PhasePre, nil
	case PhasePost:
		return PhasePost, nil
	}
	return "", fmt.Errorf("invalid phase %q (want pre or post)", s)
}

// SafeToken maps a command string to its filename-safe form. The mapping is
// pure: spaces and slashes become underscores, pipes are removed.
func SafeToken(command string) string {
	t := strings.ReplaceAll(command, " ", "_")
	t = strings.ReplaceAll(t, "|", "")
	return strings.ReplaceAll(t, "/", "_")
}

// CommandOutput pairs a command with its captured text.
type CommandOutput struct {
	Command string
	Output  string
}

// Store manages snapshot persistence for one run directory.
type Store struct {
	Dir string // Base directory for this run's artifacts
}

// NewStore creates a store rooted at the given directory.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// SnapshotPath returns the file path for one command's capture.
func (s *Store) SnapshotPath(host string, phase Phase, command string) string {
	name := fmt.Sprintf("%s-%s.%s", host, SafeToken(command), phase)
	return filepath.Join(s.Dir, name)
}

// ConsolidatedPath returns the file path for a host's full-phase record.
func (s *Store) ConsolidatedPath(host string, phase Phase) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s.%scheck", host, phase))
}

// ReportPath returns the file path for a host's diff report.
func (s *Store) ReportPath(host string) string {
	return filepath.Join(s.Dir, host+".out")
}

// WriteSnapshot stores one command's output, replacing any prior content
// for the same key, and returns the file path.
func (s *Store) WriteSnapshot(host string, phase Phase, command, output string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}
	path := s.SnapshotPath(host, phase, command)
	if err := os.WriteFile(path, []byte(output), 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// ReadSnapshot retrieves one command's captured output.
func (s *Store) ReadSnapshot(host string, phase Phase, command string) (string, error) {
	data, err := os.ReadFile(s.SnapshotPath(host, phase, command))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrSnapshotMissing
		}
		return "", err
	}
	return string(data), nil
}

// WriteConsolidated stores all of a host's outputs for one phase, headered
// per command in original order, and returns the file path.
func (s *Store) WriteConsolidated(host string, phase Phase, outputs []CommandOutput) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}
	sections := make([]string, 0, len(outputs))
	for _, co := range outputs {
		sections = append(sections, fmt.Sprintf("--- %s ---\n%s\n", co.Command, co.Output))
	}
	path := s.ConsolidatedPath(host, phase)
	if err := os.WriteFile(path, []byte(strings.Join(sections, "\n\n")), 0o644); err != nil {
		return "", fmt.Errorf("write consolidated record: %w", err)
	}
	return path, nil
}

// LatestRunDir returns the most recently modified subdirectory of parent.
// Post runs use it to find the directory holding the pre-phase snapshots.
func LatestRunDir(parent string) (string, error) {
	entries, err := os.ReadDir(parent)
	if err != nil {
		return "", err
	}
	var latest string
	var latestMod int64
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); latest == "" || mod > latestMod {
			latest = entry.Name()
			latestMod = mod
		}
	}
	if latest == "" {
		return "", errors.New("no run directories found")
	}
	return filepath.Join(parent, latest), nil
}
