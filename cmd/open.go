package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kosavsech/SchoolDiary-sub000/internal/db"
	"github.com/kosavsech/SchoolDiary-sub000/internal/notify"
	"github.com/kosavsech/SchoolDiary-sub000/internal/output"
)

var openCmd = &cobra.Command{
	Use:     "open <link>",
	Short:   "Open a notification deep link (diary://...)",
	GroupID: "diary",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		link, err := notify.ParseDeepLink(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		ctx := cmd.Context()

		switch link.Route {
		case notify.RouteGrades:
			grade, err := store.GetGrade(ctx, link.ID)
			if errors.Is(err, db.ErrNotFound) {
				output.Error("grade %s not found", link.ID)
				return err
			}
			if err != nil {
				return err
			}
			if jsonOut {
				return output.JSON(grade)
			}
			name := ""
			if s, err := store.GetSubject(ctx, grade.SubjectID); err == nil {
				name = s.FullName
			}
			fmt.Println(output.FormatGrade(*grade, name))
			return nil
		case notify.RouteTasks:
			return showTask(cmd, store, link.ID)
		case notify.RouteSchedule:
			return showSchedule(ctx, store, link.Date, 1, link.Compare)
		}
		return fmt.Errorf("%w: %s", notify.ErrBadLink, link.Route)
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
}
