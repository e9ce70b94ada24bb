package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kosavsech/SchoolDiary-sub000/internal/features"
	"github.com/kosavsech/SchoolDiary-sub000/internal/output"
)

type featureState struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

var featuresCmd = &cobra.Command{
	Use:     "features",
	Short:   "List feature flags and where their values come from",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		var states []featureState
		for _, f := range features.ListAll() {
			enabled, source := features.Resolve(cfg, f.Name)
			states = append(states, featureState{Name: f.Name, Enabled: enabled, Source: source, Description: f.Description})
		}
		if jsonOut {
			return output.JSON(states)
		}
		for _, s := range states {
			mark := "off"
			if s.Enabled {
				mark = "on"
			}
			fmt.Printf("%-22s %-3s (%s)  %s\n", s.Name, mark, s.Source, s.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(featuresCmd)
}
