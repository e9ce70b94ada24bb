package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kosavsech/SchoolDiary-sub000/internal/dateparse"
	"github.com/kosavsech/SchoolDiary-sub000/internal/db"
	"github.com/kosavsech/SchoolDiary-sub000/internal/identity"
	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
	"github.com/kosavsech/SchoolDiary-sub000/internal/output"
)

type dayView struct {
	Date     time.Time       `json:"date"`
	Lessons  []models.Lesson `json:"lessons"`
	Previous []models.Lesson `json:"previous,omitempty"`
}

var scheduleDate *dateFlag

var scheduleCmd = &cobra.Command{
	Use:     "schedule",
	Short:   "Show the synced schedule",
	GroupID: "diary",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		compare, _ := cmd.Flags().GetBool("compare")

		from, err := scheduleDate.Time()
		if err != nil {
			return err
		}
		if compare {
			days = 1
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		return showSchedule(cmd.Context(), store, from, days, compare)
	},
}

func showSchedule(ctx context.Context, store *db.DB, from time.Time, days int, compare bool) error {
	names, err := store.SubjectNames(ctx)
	if err != nil {
		return err
	}

	var views []dayView
	for _, date := range dateparse.Range(from, days) {
		dayID := identity.StudyDayID(date)
		lessons, err := store.LessonsForDay(ctx, dayID)
		if err != nil {
			output.Error("load lessons for %s: %v", output.FormatDate(date), err)
			return err
		}
		view := dayView{Date: date, Lessons: lessons}

		if compare {
			change, err := store.GetScheduleChange(ctx, dayID)
			switch {
			case errors.Is(err, db.ErrNotFound):
				output.Warning("no recorded change for %s", output.FormatDate(date))
			case err != nil:
				return err
			default:
				view.Previous = change.Previous
				if !jsonOut {
					if err := printComparison(date, change.Previous, lessons, names); err != nil {
						return err
					}
					continue
				}
			}
		}

		views = append(views, view)
		if !jsonOut {
			fmt.Print(output.FormatDay(date, lessons, names))
		}
	}

	if jsonOut {
		return output.JSON(views)
	}
	return nil
}

func printComparison(date time.Time, previous, current []models.Lesson, names map[string]string) error {
	if !output.IsTerminal() {
		fmt.Print(output.FormatComparison(date, previous, current, names))
		return nil
	}
	rendered, err := output.RenderMarkdown(output.ComparisonMarkdown(date, previous, current, names))
	if err != nil {
		return err
	}
	fmt.Println(rendered)
	return nil
}

func init() {
	scheduleDate = addDateFlag(scheduleCmd.Flags(), "date", "d", "today", "first day (02.09.2024, tomorrow, пн, +2d)")
	scheduleCmd.Flags().Int("days", 1, "number of days to show")
	scheduleCmd.Flags().Bool("compare", false, "compare the day with its schedule before the last change")

	rootCmd.AddCommand(scheduleCmd)
}
