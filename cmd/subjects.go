package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
	"github.com/kosavsech/SchoolDiary-sub000/internal/output"
)

// subjectSource adapts subjects for the fuzzy matcher
type subjectSource []models.Subject

func (s subjectSource) String(i int) string { return s[i].FullName }
func (s subjectSource) Len() int            { return len(s) }

// matchSubjects ranks subjects by fuzzy match on their name, best first.
// Matching is case-insensitive.
func matchSubjects(query string, subjects []models.Subject) []models.Subject {
	query = strings.TrimSpace(query)
	if query == "" {
		return subjects
	}
	lowered := make(subjectSource, len(subjects))
	for i, s := range subjects {
		lowered[i] = s
		lowered[i].FullName = strings.ToLower(s.FullName)
	}
	matches := fuzzy.FindFrom(strings.ToLower(query), lowered)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	out := make([]models.Subject, len(matches))
	for i, m := range matches {
		out[i] = subjects[m.Index]
	}
	return out
}

var subjectsCmd = &cobra.Command{
	Use:     "subjects [query]",
	Short:   "List subjects, optionally fuzzy matched by name",
	GroupID: "diary",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		ctx := cmd.Context()

		subjects, err := store.ListSubjects(ctx)
		if err != nil {
			output.Error("list subjects: %v", err)
			return err
		}
		if len(args) == 1 {
			subjects = matchSubjects(args[0], subjects)
		}
		if jsonOut {
			return output.JSON(subjects)
		}
		if len(subjects) == 0 {
			fmt.Println("No subjects.")
			return nil
		}

		withTeachers, _ := cmd.Flags().GetBool("teachers")
		for _, s := range subjects {
			line := s.FullName
			if s.Cabinet != "" {
				line += "  каб. " + s.Cabinet
			}
			fmt.Println(line)
			if !withTeachers {
				continue
			}
			teachers, err := store.TeachersForSubject(ctx, s.ID)
			if err != nil {
				return err
			}
			for _, t := range teachers {
				fmt.Println(output.IndentString(t.FullName(), 2))
			}
		}
		return nil
	},
}

func init() {
	subjectsCmd.Flags().BoolP("teachers", "t", false, "list teachers under each subject")
	rootCmd.AddCommand(subjectsCmd)
}
