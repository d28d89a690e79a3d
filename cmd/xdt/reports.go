package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff OLD_ID NEW_ID",
	Short: "Compare two tracked files and store the report",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		oldID, err := parseID(args[0])
		if err != nil {
			return err
		}
		newID, err := parseID(args[1])
		if err != nil {
			return err
		}
		var filter *bool
		if cmd.Flags().Changed("filter") {
			v, _ := cmd.Flags().GetBool("filter")
			filter = &v
		}

		a, err := newApp(cmd, "diff")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Diff(cmd.Context(), oldID, newID, filter)
		if err != nil {
			return err
		}
		fmt.Printf("Report #%d  %s\n", res.ReportID, res.Filename)
		fmt.Println(res.Summary)
		return nil
	},
}

// report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Manage diff reports",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List diff reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		newest, _ := cmd.Flags().GetBool("newest-first")

		a, err := newApp(cmd, "report list")
		if err != nil {
			return err
		}
		defer a.Close()

		reports, err := a.Service().ListReports(cmd.Context(), newest)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Println("No reports.")
			return nil
		}
		for _, r := range reports {
			filtered := ""
			if r.Filtered {
				filtered = "  [filtered]"
			}
			fmt.Printf("#%-5d %s  #%d -> #%d  %d hunk(s) +%d/-%d  %s%s\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.OldFileID, r.NewFileID, r.Hunks, r.Added, r.Removed, r.Name, filtered)
		}
		return nil
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print the diff of a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "report show")
		if err != nil {
			return err
		}
		defer a.Close()

		text, err := a.Service().ReadReport(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	},
}

var reportDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a report and its artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		cascade, _ := cmd.Flags().GetBool("cascade")

		a, err := newApp(cmd, "report delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteReport(cmd.Context(), id, cascade); err != nil {
			return err
		}
		fmt.Printf("Deleted report #%d\n", id)
		return nil
	},
}

var reportResyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Drop reports whose artifact has disappeared",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "report resync")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Resync(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d, kept %d annotated, %d unchecked\n", res.Removed, res.Skipped, res.Failed)
		return nil
	},
}

func init() {
	diffCmd.Flags().Bool("filter", false, "Strip headers and XML boilerplate (default from config)")

	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportDeleteCmd)
	reportCmd.AddCommand(reportResyncCmd)
	reportListCmd.Flags().Bool("newest-first", false, "Order by creation time descending")
	reportDeleteCmd.Flags().Bool("cascade", false, "Also delete the report's notes and relations")

	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(reportCmd)
}
