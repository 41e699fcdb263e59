// Package audit drives before/after configuration audits across a batch of
// hosts: one SSH session per host, ordered command execution, snapshot
// persistence, and diff reconciliation after post-phase capture.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"netaudit/report"
	"netaudit/session"
	"netaudit/snapshot"
)

// Credentials are opaque to the orchestrator and handed to the dialer.
type Credentials struct {
	User     string
	Password string
}

// Dialer constructs the session runner for one host. Injecting it keeps
// the orchestrator testable without live devices.
type Dialer func(host string, creds Credentials) session.Runner

// HostFailure records why one host's processing stopped.
type HostFailure struct {
	Host string
	Kind session.ErrorKind
	Err  error
}

// BatchResult summarizes one audit run.
type BatchResult struct {
	RunID     string
	Processed []string
	Failed    []HostFailure
	Snapshots []string // per-command and consolidated artifact paths
	Reports   []string // diff report paths, post phase only
}

// Orchestrator iterates the host list, capturing snapshots and, for the
// post phase, reconciling them into diff reports.
type Orchestrator struct {
	dial    Dialer
	store   *snapshot.Store
	creds   Credentials
	workers int
	log     *slog.Logger
}

// New returns an orchestrator writing into the given store. workers <= 1
// means strictly sequential host processing.
func New(dial Dialer, store *snapshot.Store, creds Credentials, workers int, log *slog.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{dial: dial, store: store, creds: creds, workers: workers, log: log}
}

type hostOutcome struct {
	host      string
	artifacts []string
	failure   *HostFailure
}

// Run executes every command on every host for the given phase. A failure
// on one host never aborts the batch. For the post phase, reconciliation
// starts only after every host's session has finished, so both phases'
// snapshot sets are complete before any diff is computed.
func (o *Orchestrator) Run(ctx context.Context, hosts, commands []string, phase snapshot.Phase) (*BatchResult, error) {
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no hosts to process")
	}
	if len(commands) == 0 {
		return nil, fmt.Errorf("no commands to run")
	}

	res := &BatchResult{RunID: uuid.NewString()}
	o.log.Info("audit run starting",
		"run_id", res.RunID, "phase", phase,
		"hosts", len(hosts), "commands", len(commands), "workers", o.workers)

	outcomes := make([]hostOutcome, len(hosts))
	if o.workers == 1 {
		for i, host := range hosts {
			outcomes[i] = o.processHost(ctx, host, commands, phase)
		}
	} else {
		type job struct {
			idx  int
			host string
		}
		jobs := make(chan job)
		var wg sync.WaitGroup
		for w := 0; w < o.workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range jobs {
					outcomes[j.idx] = o.processHost(ctx, j.host, commands, phase)
				}
			}()
		}
		for i, host := range hosts {
			jobs <- job{idx: i, host: host}
		}
		close(jobs)
		// Barrier: no reconciliation until every session has completed.
		wg.Wait()
	}

	for _, out := range outcomes {
		res.Snapshots = append(res.Snapshots, out.artifacts...)
		if out.failure != nil {
			res.Failed = append(res.Failed, *out.failure)
			continue
		}
		res.Processed = append(res.Processed, out.host)
	}

	if phase == snapshot.PhasePost {
		rec := report.NewReconciler(o.store)
		for _, host := range hosts {
			path, rep, err := rec.WriteReport(host, commands)
			if err != nil {
				o.log.Error("diff report not written", "run_id", res.RunID, "host", host, "error", err)
				continue
			}
			res.Reports = append(res.Reports, path)
			o.log.Info("diff report written",
				"run_id", res.RunID, "host", host, "path", path, "changed", rep.Changed())
		}
	}

	o.log.Info("audit run finished",
		"run_id", res.RunID, "processed", len(res.Processed), "failed", len(res.Failed))
	for _, f := range res.Failed {
		o.log.Warn("host failed", "run_id", res.RunID, "host", f.Host, "kind", f.Kind, "error", f.Err)
	}
	return res, nil
}

// processHost owns one host's full session lifecycle. The session is
// released on every exit path.
func (o *Orchestrator) processHost(ctx context.Context, host string, commands []string, phase snapshot.Phase) hostOutcome {
	out := hostOutcome{host: host}

	r := o.dial(host, o.creds)
	if err := r.Connect(ctx); err != nil {
		out.failure = failureFor(host, err)
		o.log.Error("connect failed", "host", host, "error", err)
		return out
	}
	defer r.Close()

	var outputs []snapshot.CommandOutput
	for _, command := range commands {
		o.log.Info("running command", "host", host, "command", command)
		text, err := r.RunCommand(ctx, command)
		if err != nil {
			out.failure = failureFor(host, err)
			o.log.Error("command failed", "host", host, "command", command, "error", err)
			return out
		}
		outputs = append(outputs, snapshot.CommandOutput{Command: command, Output: text})

		path, err := o.store.WriteSnapshot(host, phase, command, text)
		if err != nil {
			// A single snapshot write failure skips that file only; the
			// host's batch continues.
			o.log.Error("snapshot not written", "host", host, "command", command, "error", err)
			continue
		}
		out.artifacts = append(out.artifacts, path)
	}

	path, err := o.store.WriteConsolidated(host, phase, outputs)
	if err != nil {
		o.log.Error("consolidated record not written", "host", host, "error", err)
	} else {
		out.artifacts = append(out.artifacts, path)
	}
	return out
}

// failureFor extracts the session error kind; anything untyped is treated
// as command I/O.
func failureFor(host string, err error) *HostFailure {
	var serr *session.Error
	if errors.As(err, &serr) {
		return &HostFailure{Host: host, Kind: serr.Kind, Err: err}
	}
	return &HostFailure{Host: host, Kind: session.KindCommandIO, Err: err}
}
