package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"xdt-go/internal/app"
	"xdt-go/internal/config"
	"xdt-go/internal/xdt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(exitCode(err))
	}
}

// exitCode maps service error kinds to distinct process exit codes.
func exitCode(err error) int {
	var xe *xdt.Error
	if !errors.As(err, &xe) {
		return 1
	}
	switch xe.Kind {
	case xdt.KindNotFound:
		return 2
	case xdt.KindForbidden:
		return 3
	case xdt.KindHasDependents:
		return 4
	case xdt.KindInvalidInput:
		return 5
	case xdt.KindIO:
		return 6
	default:
		return 1
	}
}

func formatError(err error) string {
	var xe *xdt.Error
	if errors.As(err, &xe) {
		return fmt.Sprintf("error (%s): %s", xe.Kind, err)
	}
	return fmt.Sprintf("error: %s", err)
}

// loadConfig reads the config file and applies identity flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("user") {
		cfg.Identity.UserID, _ = flags.GetInt64("user")
		cfg.Identity.IsAdmin = false
	}
	if flags.Changed("admin") {
		cfg.Identity.IsAdmin, _ = flags.GetBool("admin")
	}
	return cfg, nil
}

// newApp reads the config and creates an XDTApp. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "reconcile", "diff").
func newApp(cmd *cobra.Command, operation string) (*app.XDTApp, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	a, err := app.NewXDTApp(cmd.Context(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, &xdt.Error{Kind: xdt.KindInvalidInput, Message: fmt.Sprintf("invalid id %q", s)}
	}
	return id, nil
}

// parseUserList parses "2,3" into user ids. Empty means none.
func parseUserList(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := parseID(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func readPassphrase(prompt string) (string, error) {
	if p := os.Getenv("XDT_PASSPHRASE"); p != "" {
		return p, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:           "xdt",
	Short:         "Track versions of XML exports and annotate their diffs",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		cfg.Index.Roots, _ = cmd.Flags().GetStringSlice("root")

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Roots:      %s\n", strings.Join(cfg.Index.Roots, ", "))
		fmt.Printf("Extensions: %s\n", strings.Join(cfg.Index.Extensions, ", "))
		fmt.Printf("Artifacts:  %s\n", cfg.Artifacts.Type)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		fmt.Printf("Identity:   user %d (admin: %t)\n", cfg.Identity.UserID, cfg.Identity.IsAdmin)
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the catalog schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := app.Migrate(cfg); err != nil {
			return fmt.Errorf("migrating catalog: %w", err)
		}
		fmt.Println("Catalog schema is up to date.")
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}
		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				duration = op.FinishedAt.Sub(op.StartedAt).Round(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-18s  %s  %-8s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Int64("user", 0, "Act as this user id (overrides config identity)")
	rootCmd.PersistentFlags().Bool("admin", false, "Act with administrator rights")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().StringSlice("root", nil, "Watched export directory (repeatable)")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
