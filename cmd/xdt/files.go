package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xdt-go/internal/xdt"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [ROOT]",
	Short: "Align tracked files with the watched directories",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "reconcile")
		if err != nil {
			return err
		}
		defer a.Close()

		root := ""
		if len(args) > 0 {
			root = args[0]
		}
		res, err := a.Reconcile(cmd.Context(), root)
		if err != nil {
			return err
		}
		fmt.Printf("Added %d, removed %d, kept %d annotated, %d unreadable\n", res.Added, res.Removed, res.Skipped, res.Failed)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register PATH",
	Short: "Track a single export file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "register")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.Register(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("#%d  %s\n", f.ID, f.Path)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reconcile the watched directories whenever they change",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "watch")
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Watch(cmd.Context())
	},
}

// files command
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Inspect tracked files",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked files, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "files list")
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.Service().ListFiles(cmd.Context())
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No tracked files.")
			return nil
		}
		for _, f := range files {
			fmt.Printf("#%-5d %s  %s\n", f.ID, f.UploadedAt.Format("2006-01-02 15:04:05"), f.Path)
		}
		return nil
	},
}

var filesShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a tracked file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "files show")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.Service().GetFile(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("ID:       %d\n", f.ID)
		fmt.Printf("Path:     %s\n", f.Path)
		fmt.Printf("On disk:  %s\n", xdt.FilePath(f))
		fmt.Printf("Tracked:  %s\n", f.UploadedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Stop tracking a file and drop the reports comparing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		cascade, _ := cmd.Flags().GetBool("cascade")

		a, err := newApp(cmd, "files delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteFile(cmd.Context(), id, cascade); err != nil {
			return err
		}
		fmt.Printf("Deleted file #%d\n", id)
		return nil
	},
}

var filesSignalsCmd = &cobra.Command{
	Use:   "signals ID [NAME...]",
	Short: "List the SIGNAL declarations of a tracked file, optionally only the named ones",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "files signals")
		if err != nil {
			return err
		}
		defer a.Close()

		signals, err := a.Service().ExtractSignals(cmd.Context(), id, args[1:])
		if err != nil {
			return err
		}
		if len(signals) == 0 {
			fmt.Println("No signals.")
			return nil
		}
		fmt.Printf("%-10s %-24s %10s %10s %10s %10s %10s\n", "ID", "SIGNAL", "MAX", "MIN", "DEFAULT", "RESOLUTION", "OFFSET")
		for _, s := range signals {
			fmt.Printf("%-10s %-24s %10s %10s %10s %10s %10s\n", s.ID, s.Name, s.Max, s.Min, s.Default, s.Resolution, s.Offset)
		}
		return nil
	},
}

func init() {
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesShowCmd)
	filesCmd.AddCommand(filesDeleteCmd)
	filesCmd.AddCommand(filesSignalsCmd)
	filesDeleteCmd.Flags().Bool("cascade", false, "Also delete notes and relations on affected reports")

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(filesCmd)
}
