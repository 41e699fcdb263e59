// Command netaudit captures before/after configuration snapshots from
// network devices over SSH and reconciles them into diff reports.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"netaudit/audit"
	"netaudit/config"
	"netaudit/inventory"
	"netaudit/report"
	"netaudit/session"
	"netaudit/snapshot"
)

func main() {
	var configPath string
	rootCmd := &cobra.Command{
		Use:          "netaudit",
		Short:        "Before/after configuration audits for network devices",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "netaudit.yaml", "path to run configuration file")
	rootCmd.AddCommand(newRunCmd(&configPath))
	rootCmd.AddCommand(newDiffCmd(&configPath))
	rootCmd.AddCommand(newDevicesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type inputFlags struct {
	hostsFile    string
	host         string
	device       string
	commandsFile string
	outputDir    string
}

func (f *inputFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.hostsFile, "hosts", "hosts.txt", "host list file, one host per line")
	cmd.Flags().StringVar(&f.host, "host", "", "audit a single host instead of the host list")
	cmd.Flags().StringVar(&f.device, "device", "", "equipment type; selects the command file (run the devices command for the list)")
	cmd.Flags().StringVar(&f.commandsFile, "commands", "", "command list file (overrides --device)")
	cmd.Flags().StringVar(&f.outputDir, "output", "", "run directory for snapshot artifacts")
}

// resolve turns the flag combination into concrete host and command lists.
func (f *inputFlags) resolve() (hosts, commands []string, err error) {
	commandsFile := f.commandsFile
	if commandsFile == "" {
		if f.device == "" {
			return nil, nil, fmt.Errorf("either --commands or --device is required")
		}
		commandsFile, err = inventory.CommandFileFor(f.device)
		if err != nil {
			return nil, nil, err
		}
	}
	commands, err = inventory.LoadCommands(commandsFile)
	if err != nil {
		return nil, nil, err
	}

	if f.host != "" {
		hosts = []string{f.host}
	} else {
		hosts, err = inventory.LoadHosts(f.hostsFile)
		if err != nil {
			return nil, nil, err
		}
	}
	return hosts, commands, nil
}

// runDir picks the run directory: an explicit flag wins; post runs reuse
// the most recent run directory so the pre snapshots are found; pre runs
// get a fresh ticket-stamped directory.
func runDir(flagValue string, phase snapshot.Phase, ticket string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if phase == snapshot.PhasePost {
		dir, err := snapshot.LatestRunDir(".")
		if err != nil {
			return "", fmt.Errorf("no previous run directory found, pass --output: %w", err)
		}
		return dir, nil
	}
	if ticket == "" {
		ticket = "healthcheck"
	}
	return fmt.Sprintf("%s-%s", ticket, time.Now().Format("20060102-150405")), nil
}

// setupLogger mirrors the field tooling: one text stream to the console
// and the same records appended to the log file.
func setupLogger(logFile string) (*slog.Logger, func(), error) {
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, f), nil)
	return slog.New(handler), func() { f.Close() }, nil
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "SSH password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

func newRunCmd(configPath *string) *cobra.Command {
	var flags inputFlags
	var phaseFlag string
	var ticket string
	var user string
	var password string
	var workers int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture a pre or post snapshot across the host batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			phase, err := snapshot.ParsePhase(phaseFlag)
			if err != nil {
				return err
			}
			hosts, commands, err := flags.resolve()
			if err != nil {
				return err
			}
			dir, err := runDir(flags.outputDir, phase, ticket)
			if err != nil {
				return err
			}
			if user == "" {
				return fmt.Errorf("--user is required")
			}
			if password == "" {
				if password, err = promptPassword(); err != nil {
					return err
				}
			}
			if workers > 0 {
				cfg.Workers = workers
			}

			logger, closeLog, err := setupLogger(cfg.LogFile)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			timing := cfg.Timing()
			dial := func(host string, creds audit.Credentials) session.Runner {
				addr := net.JoinHostPort(host, strconv.Itoa(cfg.Port))
				return session.NewClient(addr, creds.User, creds.Password, timing, logger)
			}
			store := snapshot.NewStore(dir)
			creds := audit.Credentials{User: user, Password: password}
			o := audit.New(dial, store, creds, cfg.Workers, logger)

			res, err := o.Run(ctx, hosts, commands, phase)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), dir, res)
			if len(res.Processed) == 0 {
				return fmt.Errorf("all %d hosts failed", len(res.Failed))
			}
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&phaseFlag, "phase", "", "audit phase: pre or post")
	cmd.Flags().StringVar(&ticket, "ticket", "", "change ticket number used in the run directory name")
	cmd.Flags().StringVar(&user, "user", "", "SSH username")
	cmd.Flags().StringVar(&password, "password", "", "SSH password (prompted when omitted)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent host sessions (overrides config)")
	_ = cmd.MarkFlagRequired("phase")
	return cmd
}

func newDiffCmd(configPath *string) *cobra.Command {
	var flags inputFlags
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Regenerate diff reports from existing pre and post snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			hosts, commands, err := flags.resolve()
			if err != nil {
				return err
			}
			dir := flags.outputDir
			if dir == "" {
				if dir, err = snapshot.LatestRunDir("."); err != nil {
					return fmt.Errorf("no run directory found, pass --output: %w", err)
				}
			}
			logger, closeLog, err := setupLogger(cfg.LogFile)
			if err != nil {
				return err
			}
			defer closeLog()

			rec := report.NewReconciler(snapshot.NewStore(dir))
			for _, host := range hosts {
				path, rep, err := rec.WriteReport(host, commands)
				if err != nil {
					logger.Error("diff report not written", "host", host, "error", err)
					continue
				}
				status := "no changes"
				if rep.Changed() {
					status = "CHANGED"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", host, status, path)
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List supported equipment types and their command files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DEVICE\tCOMMAND FILE")
			for _, name := range inventory.DeviceTypes() {
				file, err := inventory.CommandFileFor(name)
				if err != nil {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\n", name, file)
			}
			return tw.Flush()
		},
	}
}

func printSummary(w io.Writer, dir string, res *audit.BatchResult) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Run %s complete\n", res.RunID)
	fmt.Fprintf(w, "  Processed: %d\n", len(res.Processed))
	fmt.Fprintf(w, "  Failed:    %d\n", len(res.Failed))
	fmt.Fprintf(w, "  Artifacts: %s\n", dir)
	if len(res.Failed) > 0 {
		fmt.Fprintln(w, "Failed hosts:")
		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		for _, f := range res.Failed {
			fmt.Fprintf(tw, "  %s\t%s\t%v\n", f.Host, f.Kind, f.Err)
		}
		tw.Flush()
	}
	for _, path := range res.Reports {
		fmt.Fprintf(w, "Diff report: %s\n", path)
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
}
