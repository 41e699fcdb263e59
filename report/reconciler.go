// Package report reconciles pre and post phase snapshots into per-host
// unified diff reports.
package report

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"netaudit/snapshot"
)

const separator = "------------------------------------------------------------"

// SectionStatus classifies one command's comparison outcome.
type SectionStatus string

const (
	StatusNoDifferences SectionStatus = "no differences"
	StatusChanged       SectionStatus = "changed"
	StatusMissing       SectionStatus = "missing snapshot"
)

// Section is the comparison result for a single command.
type Section struct {
	Command string
	Status  SectionStatus
	Diff    string // unified diff, set only when Status is StatusChanged
	Detail  string // which snapshot is missing, set only for StatusMissing
}

// Report holds the ordered per-command sections for one host.
type Report struct {
	Host     string
	Sections []Section
}

// Changed reports whether any command's output differs between phases.
func (r Report) Changed() bool {
	for _, s := range r.Sections {
		if s.Status == StatusChanged {
			return true
		}
	}
	return false
}

// Render formats the report for humans, enumerating every command in the
// order it was executed.
func (r Report) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Diff report for %s\n", r.Host)
	for _, s := range r.Sections {
		sb.WriteString(separator + "\n")
		fmt.Fprintf(&sb, "Command: %s\n", s.Command)
		sb.WriteString(separator + "\n")
		switch s.Status {
		case StatusChanged:
			sb.WriteString(s.Diff)
		case StatusMissing:
			fmt.Fprintf(&sb, "[%s] %s\n", s.Status, s.Detail)
		default:
			sb.WriteString(string(s.Status) + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Reconciler locates both phases' snapshots and computes line diffs.
type Reconciler struct {
	store *snapshot.Store
}

// NewReconciler returns a reconciler reading from the given store.
func NewReconciler(store *snapshot.Store) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile compares pre against post for each command in order. A missing
// snapshot on either side yields a marker section and never aborts the
// rest of the report.
func (r *Reconciler) Reconcile(host string, commands []string) Report {
	rep := Report{Host: host}
	for _, command := range commands {
		rep.Sections = append(rep.Sections, r.reconcileCommand(host, command))
	}
	return rep
}

func (r *Reconciler) reconcileCommand(host, command string) Section {
	sec := Section{Command: command}

	pre, preErr := r.store.ReadSnapshot(host, snapshot.PhasePre, command)
	post, postErr := r.store.ReadSnapshot(host, snapshot.PhasePost, command)
	switch {
	case errors.Is(preErr, snapshot.ErrSnapshotMissing):
		sec.Status = StatusMissing
		sec.Detail = r.store.SnapshotPath(host, snapshot.PhasePre, command)
		return sec
	case errors.Is(postErr, snapshot.ErrSnapshotMissing):
		sec.Status = StatusMissing
		sec.Detail = r.store.SnapshotPath(host, snapshot.PhasePost, command)
		return sec
	case preErr != nil:
		sec.Status = StatusMissing
		sec.Detail = preErr.Error()
		return sec
	case postErr != nil:
		sec.Status = StatusMissing
		sec.Detail = postErr.Error()
		return sec
	}

	if pre == post {
		sec.Status = StatusNoDifferences
		return sec
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(pre),
		B:        difflib.SplitLines(post),
		FromFile: r.store.SnapshotPath(host, snapshot.PhasePre, command),
		ToFile:   r.store.SnapshotPath(host, snapshot.PhasePost, command),
		Context:  3,
	})
	if err != nil {
		sec.Status = StatusMissing
		sec.Detail = fmt.Sprintf("diff failed: %v", err)
		return sec
	}
	sec.Status = StatusChanged
	sec.Diff = diff
	return sec
}

// WriteReport reconciles a host and writes the rendered report to
// {host}.out in the run directory, returning the path and the report.
func (r *Reconciler) WriteReport(host string, commands []string) (string, Report, error) {
	rep := r.Reconcile(host, commands)
	path := r.store.ReportPath(host)
	if err := os.WriteFile(path, []byte(rep.Render()), 0o644); err != nil {
		return "", rep, fmt.Errorf("write diff report: %w", err)
	}
	return path, rep, nil
}
