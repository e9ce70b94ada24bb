package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kosavsech/SchoolDiary-sub000/internal/db"
	"github.com/kosavsech/SchoolDiary-sub000/internal/identity"
	"github.com/kosavsech/SchoolDiary-sub000/internal/jobs"
	"github.com/kosavsech/SchoolDiary-sub000/internal/output"
)

var gradesSince *dateFlag

var gradesCmd = &cobra.Command{
	Use:     "grades [subject]",
	Short:   "List synced grades",
	GroupID: "diary",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		ctx := cmd.Context()

		opts := db.ListGradesOptions{}
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		if opts.Since, err = gradesSince.Time(); err != nil {
			return err
		}
		if len(args) == 1 {
			opts.SubjectID = identity.SubjectID(args[0])
		}

		grades, err := store.ListGrades(ctx, opts)
		if err != nil {
			output.Error("list grades: %v", err)
			return err
		}
		if jsonOut {
			return output.JSON(grades)
		}
		if len(grades) == 0 {
			fmt.Println("No grades.")
			return nil
		}
		names, err := store.SubjectNames(ctx)
		if err != nil {
			return err
		}
		for _, g := range grades {
			fmt.Println(output.FormatGrade(g, names[g.SubjectID]))
		}
		return nil
	},
}

var termMarksCmd = &cobra.Command{
	Use:     "marks [term]",
	Short:   "List final term marks",
	GroupID: "diary",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := 0
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 || n > jobs.Terms {
				return fmt.Errorf("term must be 1..%d, got %q", jobs.Terms, args[0])
			}
			term = n
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		marks, err := store.ListTermMarks(cmd.Context(), term)
		if err != nil {
			output.Error("list term marks: %v", err)
			return err
		}
		if jsonOut {
			return output.JSON(marks)
		}
		names, err := store.SubjectNames(cmd.Context())
		if err != nil {
			return err
		}
		for _, m := range marks {
			fmt.Println(output.FormatTermMark(m, names[m.SubjectID]))
		}
		return nil
	},
}

func init() {
	gradesSince = addDateFlag(gradesCmd.Flags(), "since", "", "", "only grades on or after this date (02.09.2024, -7d, monday)")
	gradesCmd.Flags().IntP("limit", "n", 50, "maximum number of grades")

	rootCmd.AddCommand(gradesCmd)
	rootCmd.AddCommand(termMarksCmd)
}
