package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kosavsech/SchoolDiary-sub000/internal/db"
	"github.com/kosavsech/SchoolDiary-sub000/internal/output"
)

var tasksFrom *dateFlag

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Short:   "List homework tasks",
	GroupID: "diary",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		ctx := cmd.Context()

		opts := db.ListTasksOptions{}
		opts.IncludeDone, _ = cmd.Flags().GetBool("all")
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		if opts.DueFrom, err = tasksFrom.Time(); err != nil {
			return err
		}

		tasks, err := store.ListTasks(ctx, opts)
		if err != nil {
			output.Error("list tasks: %v", err)
			return err
		}
		if jsonOut {
			return output.JSON(tasks)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks.")
			return nil
		}
		names, err := store.SubjectNames(ctx)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Println(output.FormatTask(t, names[t.SubjectID]))
		}
		return nil
	},
}

func showTask(cmd *cobra.Command, store *db.DB, id string) error {
	task, err := store.GetTask(cmd.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		output.Error("task %s not found", id)
		return err
	}
	if err != nil {
		return err
	}
	if jsonOut {
		return output.JSON(task)
	}
	subject, err := store.GetSubject(cmd.Context(), task.SubjectID)
	name := ""
	if err == nil {
		name = subject.FullName
	}
	fmt.Println(output.FormatTask(*task, name))
	if task.Description != "" {
		rendered, err := output.RenderMarkdown(task.Description)
		if err != nil {
			rendered = task.Description
		}
		fmt.Println(rendered)
	}
	return nil
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one task with its description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		return showTask(cmd, store, args[0])
	},
}

func setDone(done bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SetTaskDone(cmd.Context(), args[0], done); err != nil {
			output.Error("update task: %v", err)
			return err
		}
		state := "open"
		if done {
			state = "done"
		}
		output.Success("Task %s marked %s", args[0], state)
		return nil
	}
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task as done",
	Args:  cobra.ExactArgs(1),
	RunE:  setDone(true),
}

var taskUndoCmd = &cobra.Command{
	Use:   "undo <id>",
	Short: "Mark a task as not done",
	Args:  cobra.ExactArgs(1),
	RunE:  setDone(false),
}

func init() {
	tasksCmd.Flags().Bool("all", false, "include finished tasks")
	tasksFrom = addDateFlag(tasksCmd.Flags(), "from", "", "today", "only tasks due on or after this date")
	tasksCmd.Flags().IntP("limit", "n", 50, "maximum number of tasks")

	tasksCmd.AddCommand(taskShowCmd)
	tasksCmd.AddCommand(taskDoneCmd)
	tasksCmd.AddCommand(taskUndoCmd)
	rootCmd.AddCommand(tasksCmd)
}
