package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xdt-go/internal/model"
)

func printRelation(r *model.Relation) {
	fmt.Printf("#%-5d report #%d  %s: %s  %s\n", r.ID, r.ReportID, r.Type, r.Value, r.CreatedAt.Format("2006-01-02 15:04:05"))
}

// relation command
var relationCmd = &cobra.Command{
	Use:   "relation",
	Short: "Link diff reports to requirements, tickets and documents",
}

var relationAddCmd = &cobra.Command{
	Use:   "add REPORT_ID TYPE VALUE",
	Short: "Attach a reference such as \"SRS SRS-39\" to a report",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportID, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "relation add")
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.CreateRelation(cmd.Context(), reportID, args[1], args[2])
		if err != nil {
			return err
		}
		printRelation(r)
		return nil
	},
}

var relationListCmd = &cobra.Command{
	Use:   "list REPORT_ID",
	Short: "List the relations of a report, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportID, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "relation list")
		if err != nil {
			return err
		}
		defer a.Close()

		relations, err := a.Service().ListRelations(cmd.Context(), reportID)
		if err != nil {
			return err
		}
		if len(relations) == 0 {
			fmt.Println("No relations.")
			return nil
		}
		for _, r := range relations {
			printRelation(r)
		}
		return nil
	},
}

var relationUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change the type or value of a relation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		relType, _ := cmd.Flags().GetString("type")
		value, _ := cmd.Flags().GetString("value")

		a, err := newApp(cmd, "relation update")
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.UpdateRelation(cmd.Context(), id, relType, value)
		if err != nil {
			return err
		}
		printRelation(r)
		return nil
	},
}

var relationDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a relation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "relation delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteRelation(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted relation #%d\n", id)
		return nil
	},
}

func init() {
	relationCmd.AddCommand(relationAddCmd)
	relationCmd.AddCommand(relationListCmd)
	relationCmd.AddCommand(relationUpdateCmd)
	relationCmd.AddCommand(relationDeleteCmd)
	relationUpdateCmd.Flags().String("type", "", "New relation type")
	relationUpdateCmd.Flags().String("value", "", "New relation value")

	rootCmd.AddCommand(relationCmd)
}
