package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"todo-scheduler/internal/model"
	"todo-scheduler/internal/repository"
	"todo-scheduler/internal/service"
)

const dateTimeLayout = "2006-01-02 15:04"

func registerTaskCommands(root *cobra.Command) {
	var owner string
	root.PersistentFlags().StringVar(&owner, "owner", "", "Owner ID the command acts on")

	ownerID := func() (string, error) {
		if strings.TrimSpace(owner) == "" {
			return "", fmt.Errorf("--owner is required")
		}
		return strings.TrimSpace(owner), nil
	}

	root.AddCommand(
		newAddCmd(ownerID),
		newCompleteCmd(ownerID),
		newRescheduleCmd(ownerID),
		newDeleteCmd(ownerID),
		newShowCmd(ownerID),
		newListCmd(ownerID),
		newRemindersCmd(ownerID),
		newTagsCmd(ownerID),
	)
}

func newAddCmd(ownerID func() (string, error)) *cobra.Command {
	var (
		title, description, priority string
		due, recur, until            string
		remind, every                int
		tags                         []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}

			input := service.TaskInput{
				Title:       title,
				Description: description,
				Priority:    priority,
				Tags:        tags,
			}
			if input.DueAt, err = parseDueFlag(due); err != nil {
				return err
			}
			if cmd.Flags().Changed("remind") {
				input.ReminderOffsetMinutes = &remind
			}
			if recur != "" {
				end, err := parseUntilFlag(until)
				if err != nil {
					return err
				}
				input.Recurrence = &service.RecurrenceInput{Pattern: recur, IntervalDays: every, EndDate: end}
			}

			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			task, err := a.tasks.CreateTask(cmd.Context(), owner, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", task.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&title, "title", "", "Task title")
	f.StringVar(&description, "description", "", "Task description")
	f.StringVar(&priority, "priority", "", "none, low, medium, high or urgent")
	f.StringVar(&due, "due", "", "Due time, RFC3339 or \"YYYY-MM-DD HH:MM\" in UTC")
	f.IntVar(&remind, "remind", 0, "Remind this many minutes before the due time")
	f.StringVar(&recur, "recur", "", "daily, weekly, monthly, yearly or custom")
	f.IntVar(&every, "every", 0, "Interval in days for custom recurrence")
	f.StringVar(&until, "until", "", "Last day a recurrence may fall on (YYYY-MM-DD or RFC3339)")
	f.StringSliceVar(&tags, "tag", nil, "Tag name, repeatable")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newCompleteCmd(ownerID func() (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Complete a task and schedule its next occurrence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.tasks.CompleteTask(cmd.Context(), owner, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "completed %s\n", result.Task.ID)
			if result.Successor != nil {
				fmt.Fprintf(out, "next %s due %s\n", result.Successor.ID, formatDue(result.Successor.DueAt))
			}
			return nil
		},
	}
}

func newRescheduleCmd(ownerID func() (string, error)) *cobra.Command {
	var due string
	cmd := &cobra.Command{
		Use:   "reschedule <task-id>",
		Short: "Move a task's due time and rebuild its pending reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			dueAt, err := parseDueFlag(due)
			if err != nil {
				return err
			}
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			task, err := a.tasks.RescheduleTask(cmd.Context(), owner, args[0], dueAt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rescheduled %s to %s\n", task.ID, formatDue(task.DueAt))
			return nil
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "New due time; empty clears it")
	return cmd
}

func newDeleteCmd(ownerID func() (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task and its reminders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.tasks.DeleteTask(cmd.Context(), owner, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newListCmd(ownerID func() (string, error)) *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			tasks, err := a.tasks.ListTasks(cmd.Context(), owner, repository.TaskFilter{Status: status, Limit: limit})
			if err != nil {
				return err
			}
			return writeTasks(cmd.OutOrStdout(), tasks)
		},
	}
	cmd.Flags().StringVar(&status, "status", repository.StatusPending, "all, pending or completed")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of tasks, 0 for no limit")
	return cmd
}

func newShowCmd(ownerID func() (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task and the occurrence that followed it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			task, err := a.tasks.GetTask(cmd.Context(), owner, args[0])
			if err != nil {
				return err
			}
			next, err := a.tasks.Successor(cmd.Context(), owner, task.ID)
			if err != nil {
				return err
			}
			return writeTaskDetail(cmd.OutOrStdout(), task, next)
		},
	}
}

func newRemindersCmd(ownerID func() (string, error)) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "List reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.reminders.ListReminders(cmd.Context(), owner, status)
			if err != nil {
				return err
			}
			if err := writeReminders(cmd.OutOrStdout(), list.Reminders); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unread: %d\n", list.UnreadCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", repository.ReminderPending, "all, pending, sent or unread")

	var all bool
	readCmd := &cobra.Command{
		Use:   "read [reminder-id]",
		Short: "Mark a delivered reminder, or all of them, as read",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			if all == (len(args) == 1) {
				return fmt.Errorf("pass either a reminder ID or --all")
			}
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			if all {
				n, err := a.reminders.MarkAllRead(cmd.Context(), owner)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "marked %d reminders read\n", n)
				return nil
			}
			if err := a.reminders.MarkRead(cmd.Context(), owner, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "read %s\n", args[0])
			return nil
		},
	}
	readCmd.Flags().BoolVar(&all, "all", false, "Mark every delivered reminder read")

	deleteCmd := &cobra.Command{
		Use:   "delete <reminder-id>",
		Short: "Delete a reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.reminders.DeleteReminder(cmd.Context(), owner, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(readCmd, deleteCmd)
	return cmd
}

func newTagsCmd(ownerID func() (string, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			tags, err := a.tags.List(cmd.Context(), owner)
			if err != nil {
				return err
			}
			return writeTags(cmd.OutOrStdout(), tags)
		},
	}

	renameCmd := &cobra.Command{
		Use:   "rename <tag-id> <name>",
		Short: "Rename a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			tag, err := a.tags.Rename(cmd.Context(), owner, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %s to %s\n", tag.ID, tag.Name)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <tag-id>",
		Short: "Delete a tag and remove it from its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.tags.Delete(cmd.Context(), owner, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(renameCmd, deleteCmd)
	return cmd
}

func writeTasks(w io.Writer, tasks []model.Task) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDUE\tPRIORITY\tREPEATS\tDONE")
	for _, task := range tasks {
		repeats := "-"
		if task.Recurrence != nil {
			repeats = task.Recurrence.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
			task.ID, task.Title, formatDue(task.DueAt), task.Priority, repeats, task.Completed)
	}
	return tw.Flush()
}

func writeReminders(w io.Writer, reminders []model.Reminder) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTASK\tREMIND AT\tSENT\tREAD")
	for _, r := range reminders {
		sent := "-"
		if r.Sent && r.SentAt != nil {
			sent = r.SentAt.UTC().Format(dateTimeLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", r.ID, r.TaskID, r.RemindAt.UTC().Format(dateTimeLayout), sent, r.Read)
	}
	return tw.Flush()
}

func writeTags(w io.Writer, tags []model.Tag) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, tag := range tags {
		fmt.Fprintf(tw, "%s\t%s\n", tag.ID, tag.Name)
	}
	return tw.Flush()
}

func writeTaskDetail(w io.Writer, task *model.Task, next *model.Task) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", task.ID)
	fmt.Fprintf(tw, "title:\t%s\n", task.Title)
	if task.Description != "" {
		fmt.Fprintf(tw, "description:\t%s\n", task.Description)
	}
	fmt.Fprintf(tw, "priority:\t%s\n", task.Priority)
	fmt.Fprintf(tw, "due:\t%s\n", formatDue(task.DueAt))
	if task.ReminderOffsetMinutes != nil {
		fmt.Fprintf(tw, "remind:\t%d min before\n", *task.ReminderOffsetMinutes)
	}
	if task.Recurrence != nil {
		fmt.Fprintf(tw, "repeats:\t%s\n", task.Recurrence)
	}
	if len(task.Tags) > 0 {
		names := make([]string, 0, len(task.Tags))
		for _, tag := range task.Tags {
			names = append(names, tag.Name)
		}
		fmt.Fprintf(tw, "tags:\t%s\n", strings.Join(names, ", "))
	}
	if task.ParentTaskID != nil {
		fmt.Fprintf(tw, "follows:\t%s\n", *task.ParentTaskID)
	}
	fmt.Fprintf(tw, "done:\t%t\n", task.Completed)
	if next != nil {
		fmt.Fprintf(tw, "next:\t%s due %s\n", next.ID, formatDue(next.DueAt))
	}
	return tw.Flush()
}

// parseDueFlag accepts RFC3339 or a UTC "YYYY-MM-DD HH:MM"; empty means no due time.
func parseDueFlag(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(dateTimeLayout, raw, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid due time %q: use RFC3339 or %q", raw, dateTimeLayout)
	}
	return &t, nil
}

// parseUntilFlag treats a bare date as the whole of that day.
func parseUntilFlag(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: use YYYY-MM-DD or RFC3339", raw)
	}
	end := day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return &end, nil
}

func formatDue(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(dateTimeLayout)
}
