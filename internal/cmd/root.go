// Package cmd hosts the admin CLI: the cobra subcommands reachable only
// when sj is invoked as the literal "sj" binary with a first argument
// matching one of these names (doctor, config, monitor, version). The core
// invocation path (§4.8) never touches this package.
package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/sj-launcher/sj/internal/config"
	"github.com/sj-launcher/sj/internal/health"
	"github.com/sj-launcher/sj/internal/java"
	"github.com/sj-launcher/sj/internal/output"
	"github.com/sj-launcher/sj/internal/rendezvous"
	"github.com/sj-launcher/sj/internal/tui"
)

// Version is set at build time via -ldflags, mirroring the teacher's own
// root command.
var Version = "dev"

var (
	jsonFlag    bool
	verboseFlag bool
	quietFlag   bool
	noColorFlag bool
	ConfigDir   string
)

// AdminCommands is the set of first-argument names that route to this
// package instead of the core invocation path, checked by cmd/sj/main.go
// before any cobra parsing happens.
var AdminCommands = map[string]bool{
	"doctor":  true,
	"config":  true,
	"monitor": true,
	"version": true,
}

func NewRootCmd() *cobra.Command {
	cmd := newRootCmd()
	addDoctorCommand(cmd)
	addConfigCommand(cmd)
	addMonitorCommand(cmd)
	addVersionCommand(cmd)
	return cmd
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sj",
		Short:         "sj — nailgun-style JVM launcher admin CLI",
		Long:          "sj — admin and diagnostic commands for the sj JVM launcher. Ordinary tool invocations go through the core path, not this command.",
		Version:       fmt.Sprintf("sj v%s", Version),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verboseFlag && quietFlag {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}
			if jsonFlag {
				quietFlag = true
			}
			output.SetFlags(jsonFlag, quietFlag, verboseFlag)
			config.SetConfigDir(ConfigDir)
			return nil
		},
	}

	rootCmd.SetVersionTemplate("{{.Version}}\n")

	pflags := rootCmd.PersistentFlags()
	pflags.BoolVarP(&jsonFlag, "json", "j", false, "Output as JSON")
	pflags.BoolVarP(&verboseFlag, "verbose", "v", false, "Extra detail to stderr")
	pflags.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")
	pflags.BoolVar(&noColorFlag, "no-color", false, "Disable ANSI colors")
	pflags.StringVar(&ConfigDir, "config-dir", "", "Override sj home directory (default: ~/.sj)")

	if v := os.Getenv("SJ_HOME"); v != "" && ConfigDir == "" {
		ConfigDir = v
	}
	if os.Getenv("NO_COLOR") != "" {
		noColorFlag = true
	}
	if os.Getenv("SJ_JSON") == "1" {
		jsonFlag = true
	}

	return rootCmd
}

func addVersionCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the sj build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "sj v%s\n", Version)
			return nil
		},
	})
}

func addMonitorCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "monitor",
		Short: "Launch the interactive monitor dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			sjHome, err := config.SjHome()
			if err != nil {
				return err
			}
			if noColorFlag {
				lipgloss.SetColorProfile(termenv.Ascii)
			}
			p := tea.NewProgram(tui.NewApp(sjHome), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	})
}

type doctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

func addDoctorCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Run health checks against java, config, and the rendezvous directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			sjHome, err := config.SjHome()
			if err != nil {
				return err
			}

			var checks []doctorCheck
			errors := 0

			if info, err := java.Detect(); err != nil || !info.Found {
				checks = append(checks, doctorCheck{"java", "error", "not found on JAVA_HOME or PATH"})
				errors++
			} else {
				checks = append(checks, doctorCheck{"java", "ok", fmt.Sprintf("%s (%s)", info.Version, info.Source)})
			}

			if rec, err := config.Load(sjHome); err != nil {
				checks = append(checks, doctorCheck{"config", "error", err.Error()})
				errors++
			} else {
				checks = append(checks, doctorCheck{"config", "ok", fmt.Sprintf("startup=%q idle_timeout=%d", rec.StartupCmd, rec.IdleTimeout)})
			}

			if err := os.MkdirAll(sjHome, 0700); err != nil {
				checks = append(checks, doctorCheck{"rendezvous dir", "error", err.Error()})
				errors++
			} else {
				checks = append(checks, doctorCheck{"rendezvous dir", "ok", sjHome})
			}

			status, err := health.CheckServer(sjHome)
			if err != nil {
				checks = append(checks, doctorCheck{"server", "error", err.Error()})
				errors++
			} else if status.Running {
				checks = append(checks, doctorCheck{"server", "ok", fmt.Sprintf("running (pid %d)", status.PID)})
			} else if status.Stale {
				checks = append(checks, doctorCheck{"server", "warning", fmt.Sprintf("stale pid file (pid %d)", status.PID)})
			} else {
				checks = append(checks, doctorCheck{"server", "warning", "not running"})
			}

			if stale, err := health.StaleOwners(rendezvous.New(sjHome)); err != nil {
				checks = append(checks, doctorCheck{"slot owners", "error", err.Error()})
				errors++
			} else if len(stale) > 0 {
				checks = append(checks, doctorCheck{"slot owners", "warning", fmt.Sprintf("%d stale", len(stale))})
			} else {
				checks = append(checks, doctorCheck{"slot owners", "ok", "none stale"})
			}

			if output.IsJSON() {
				if err := output.PrintJSON(cmd.OutOrStdout(), checks); err != nil {
					return err
				}
			} else {
				for _, c := range checks {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-6s %-14s %s\n", c.Status, c.Name, c.Detail)
				}
			}

			if errors > 0 {
				os.Exit(output.ExitError)
			}
			return nil
		},
	})
}

func addConfigCommand(root *cobra.Command) {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Get or set client-local preferences (prefs.toml)",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a preference's value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sjHome, err := config.SjHome()
			if err != nil {
				return err
			}
			value, err := config.GetPreference(sjHome, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a preference's value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sjHome, err := config.SjHome()
			if err != nil {
				return err
			}
			return config.SetPreference(sjHome, args[0], args[1])
		},
	})

	root.AddCommand(configCmd)
}

// Execute builds the root command and runs it.
func Execute() error {
	return NewRootCmd().Execute()
}
