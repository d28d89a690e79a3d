package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"xdt-go/internal/model"
	"xdt-go/internal/xdt"
)

func printNote(n *model.Note) {
	viewers := make([]string, len(n.VisibleTo))
	for i, id := range n.VisibleTo {
		viewers[i] = fmt.Sprint(id)
	}
	fmt.Printf("#%d  report #%d  by user %d  %s\n", n.ID, n.ReportID, n.OwnerID, n.UpdatedAt.Format("2006-01-02 15:04:05"))
	if len(viewers) > 0 {
		fmt.Printf("    visible to: %s\n", strings.Join(viewers, ","))
	}
	fmt.Printf("    %s\n", n.Content)
}

// note command
var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Annotate diff reports",
}

var noteCreateCmd = &cobra.Command{
	Use:   "create REPORT_ID CONTENT",
	Short: "Attach a note to a report",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportID, err := parseID(args[0])
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetString("visible")
		visible, err := parseUserList(raw)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "note create")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.CreateNote(cmd.Context(), a.Actor(), reportID, args[1], visible)
		if err != nil {
			return err
		}
		printNote(n)
		return nil
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list REPORT_ID",
	Short: "List the notes of a report you can read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportID, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "note list")
		if err != nil {
			return err
		}
		defer a.Close()

		notes, err := a.Service().ListNotes(cmd.Context(), a.Actor(), reportID)
		if err != nil {
			return err
		}
		if len(notes) == 0 {
			fmt.Println("No notes.")
			return nil
		}
		for _, n := range notes {
			printNote(n)
		}
		return nil
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "note show")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Service().GetNote(cmd.Context(), a.Actor(), id)
		if err != nil {
			return err
		}
		printNote(n)
		return nil
	},
}

var noteUpdateCmd = &cobra.Command{
	Use:   "update ID CONTENT",
	Short: "Replace the content of a note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "note update")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.UpdateNote(cmd.Context(), a.Actor(), id, args[1])
		if err != nil {
			return err
		}
		printNote(n)
		return nil
	},
}

var noteDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "note delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteNote(cmd.Context(), a.Actor(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted note #%d\n", id)
		return nil
	},
}

var noteVisibilityCmd = &cobra.Command{
	Use:   "visibility ID USERS",
	Short: "Replace who may read a note (comma-separated ids, \"\" for nobody)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		visible, err := parseUserList(args[1])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "note visibility")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.SetVisibility(cmd.Context(), a.Actor(), id, visible)
		if err != nil {
			return err
		}
		printNote(n)
		return nil
	},
}

// notifications command
var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Read your notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		unread, _ := cmd.Flags().GetBool("unread")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		a, err := newApp(cmd, "notifications list")
		if err != nil {
			return err
		}
		defer a.Close()

		items, total, err := a.Service().ListNotifications(cmd.Context(), a.Actor().UserID,
			xdt.NotificationQuery{OnlyUnread: unread, Limit: limit, Offset: offset})
		if err != nil {
			return err
		}
		for _, n := range items {
			mark := "*"
			if n.IsRead {
				mark = " "
			}
			fmt.Printf("%s #%-5d %s  note #%d from user %d: %s\n",
				mark, n.ID, n.CreatedAt.Format("2006-01-02 15:04:05"), n.NoteID, n.ActorID, n.Message)
		}
		fmt.Printf("%d of %d\n", len(items), total)
		return nil
	},
}

var notificationsUnreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Print the number of unread notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "notifications unread")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Service().UnreadCount(cmd.Context(), a.Actor().UserID)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read ID",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "notifications read")
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.Service().MarkRead(cmd.Context(), a.Actor().UserID, id)
		return err
	},
}

var notificationsReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "notifications read-all")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Service().MarkAllRead(cmd.Context(), a.Actor().UserID)
		if err != nil {
			return err
		}
		fmt.Printf("Marked %d notification(s) read\n", n)
		return nil
	},
}

var notificationsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a notification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "notifications delete")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Service().DeleteNotification(cmd.Context(), a.Actor().UserID, id)
	},
}

var notificationsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all read notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "notifications clear")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Service().DeleteReadNotifications(cmd.Context(), a.Actor().UserID)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d notification(s)\n", n)
		return nil
	},
}

func init() {
	noteCmd.AddCommand(noteCreateCmd)
	noteCmd.AddCommand(noteListCmd)
	noteCmd.AddCommand(noteShowCmd)
	noteCmd.AddCommand(noteUpdateCmd)
	noteCmd.AddCommand(noteDeleteCmd)
	noteCmd.AddCommand(noteVisibilityCmd)
	noteCreateCmd.Flags().String("visible", "", "Comma-separated user ids allowed to read the note")

	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsUnreadCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
	notificationsCmd.AddCommand(notificationsReadAllCmd)
	notificationsCmd.AddCommand(notificationsDeleteCmd)
	notificationsCmd.AddCommand(notificationsClearCmd)
	notificationsListCmd.Flags().Bool("unread", false, "Only unread notifications")
	notificationsListCmd.Flags().IntP("limit", "n", 20, "Page size (max 100)")
	notificationsListCmd.Flags().Int("offset", 0, "Number of notifications to skip")

	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(notificationsCmd)
}
