package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"drillsync/internal/bootstrap"
	"drillsync/internal/platform/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configFile string
	online     bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "drillsync",
		Short:         "Practice session journal and offline sync outbox",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default <data-dir>/drillsync.yaml)")
	root.PersistentFlags().String("data-dir", config.DefaultDataDir, "directory holding the store, status file and delivery log")
	root.PersistentFlags().String("store", config.StoreSQLite, "store backend: sqlite|file|memory")
	root.PersistentFlags().String("log-level", "info", "log level: debug|info|warn|error")
	root.PersistentFlags().String("log-file", "", "write logs to a rotating file instead of stderr")
	root.PersistentFlags().BoolVar(&flags.online, "online", false, "treat the network as connected, ignoring the status file")

	root.AddCommand(newPracticeCmd(flags))
	root.AddCommand(newSessionCmd(flags))
	root.AddCommand(newOutboxCmd(flags))
	root.AddCommand(newNetCmd(flags))
	root.AddCommand(newWatchCmd(flags))
	root.AddCommand(newConfigCmd(flags))
	return root
}

func loadConfig(cmd *cobra.Command, flags *rootFlags) (config.Config, error) {
	return config.Load(flags.configFile, cmd.Flags())
}

func loadApp(cmd *cobra.Command, flags *rootFlags) (*bootstrap.App, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cmd.Context(), cfg, bootstrap.Options{Online: flags.online})
}

// withApp runs fn against a freshly built app and always releases it.
func withApp(cmd *cobra.Command, flags *rootFlags, fn func(ctx context.Context, app *bootstrap.App) error) (err error) {
	app, err := loadApp(cmd, flags)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(cmd.Context(), app)
}

func newPracticeCmd(flags *rootFlags) *cobra.Command {
	var mode, answers string
	var items []string
	var difficulty, points int
	var fresh, complete bool

	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Run one practice launch: resume or start, answer, then complete or suspend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseAnswers(answers)
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				out := cmd.OutOrStdout()
				check, err := app.JournalCLI.Check(ctx)
				if err != nil {
					return err
				}
				switch {
				case check.Found && !fresh:
					session, err := app.JournalCLI.Resume(ctx)
					if err != nil {
						return err
					}
					renderSession(out, "resumed session", session)
				default:
					if check.Found {
						if err := app.JournalCLI.Clear(ctx); err != nil {
							return err
						}
					}
					session, err := app.JournalCLI.Start(ctx, mode, items, difficulty)
					if err != nil {
						return err
					}
					renderSession(out, "started session", session)
				}

				for _, correct := range parsed {
					answered, err := app.JournalCLI.Answer(ctx, correct, points)
					if err != nil {
						return err
					}
					renderAnswer(out, correct, answered)
				}

				if complete {
					done, err := app.JournalCLI.Complete(ctx)
					if err != nil {
						return err
					}
					renderComplete(out, done)
					return nil
				}
				suspended, err := app.JournalCLI.Suspend(ctx)
				if err != nil {
					return err
				}
				renderSuspend(out, suspended)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "notes", "practice mode: notes|chords|mixed")
	cmd.Flags().StringSliceVar(&items, "items", nil, "selected notes or chords")
	cmd.Flags().IntVar(&difficulty, "difficulty", 1, "difficulty level")
	cmd.Flags().StringVar(&answers, "answers", "", "comma separated answers, 1 for correct and 0 for wrong")
	cmd.Flags().IntVar(&points, "points", 10, "points per correct answer")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "discard an unfinished session instead of resuming it")
	cmd.Flags().BoolVar(&complete, "complete", false, "finish the session and queue its results for sync")
	return cmd
}

func parseAnswers(value string) ([]bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	out := make([]bool, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "y", "yes":
			out = append(out, true)
			continue
		case "n", "no":
			out = append(out, false)
			continue
		}
		correct, err := strconv.ParseBool(part)
		if err != nil {
			return nil, fmt.Errorf("--answers: %q is not 1 or 0", part)
		}
		out = append(out, correct)
	}
	return out, nil
}

func newSessionCmd(flags *rootFlags) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Inspect or drop the session checkpoint"}

	check := &cobra.Command{
		Use:   "check",
		Short: "Look for an unfinished session (expired checkpoints are removed)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.JournalCLI.Check(ctx)
				if err != nil {
					return err
				}
				if !out.Found {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no unfinished session")
					return nil
				}
				renderSession(cmd.OutOrStdout(), "unfinished session", out.Session)
				return nil
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the journal state after a launch check",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				if _, err := app.JournalCLI.Check(ctx); err != nil {
					return err
				}
				out, err := app.JournalCLI.Status(ctx)
				if err != nil {
					return err
				}
				renderStatus(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the session checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.JournalCLI.Clear(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "session checkpoint cleared")
				return nil
			})
		},
	}

	session.AddCommand(check, status, clearCmd)
	return session
}

func newOutboxCmd(flags *rootFlags) *cobra.Command {
	outbox := &cobra.Command{Use: "outbox", Short: "Manage actions waiting for sync"}

	enqueue := &cobra.Command{
		Use:   "enqueue <action> [json]",
		Short: "Queue an action (save_stats|save_settings|complete_daily)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := ""
			if len(args) == 2 {
				payload = args[1]
			}
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.OutboxCLI.Enqueue(ctx, args[0], payload)
				if err != nil {
					return err
				}
				renderEnqueue(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	drain := &cobra.Command{
		Use:   "drain",
		Short: "Try to deliver every queued action once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.OutboxCLI.Drain(ctx)
				if err != nil {
					return err
				}
				renderDrain(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	var format string
	list := &cobra.Command{
		Use:   "list",
		Short: "List queued actions in delivery order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.OutboxCLI.List(ctx)
				if err != nil {
					return err
				}
				return renderList(cmd.OutOrStdout(), format, out)
			})
		},
	}
	list.Flags().StringVar(&format, "format", formatTable, "output format: table|yaml|json")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every queued action",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.OutboxCLI.Clear(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "outbox cleared")
				return nil
			})
		},
	}

	outbox.AddCommand(enqueue, drain, list, clearCmd)
	return outbox
}

func newNetCmd(flags *rootFlags) *cobra.Command {
	net := &cobra.Command{Use: "net", Short: "Read or change the reported network status"}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current network status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.OutboxCLI.Network(ctx)
				if err != nil {
					return err
				}
				renderNetwork(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	var connected bool
	var reachable, transport string
	set := &cobra.Command{
		Use:   "set",
		Short: "Write the network status file; a running watch reacts to it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.OutboxCLI.SetNetwork(ctx, connected, reachable, transport)
				if err != nil {
					return err
				}
				renderNetwork(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	set.Flags().BoolVar(&connected, "connected", false, "whether a network connection is up")
	set.Flags().StringVar(&reachable, "reachable", "unknown", "internet reachability: yes|no|unknown")
	set.Flags().StringVar(&transport, "transport", "", "transport name, e.g. wifi or cellular")

	net.AddCommand(status, set)
	return net
}

func newWatchCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Drain the outbox whenever connectivity returns, until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "watching %s (ctrl-c to stop)\n", app.Config.NetworkFile)
				return app.Watch(ctx)
			})
		},
	}
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			raw, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	}
	cfgCmd.AddCommand(show)
	return cfgCmd
}
