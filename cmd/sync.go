package cmd

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/kosavsech/SchoolDiary-sub000/internal/jobs"
	"github.com/kosavsech/SchoolDiary-sub000/internal/output"
	"github.com/kosavsech/SchoolDiary-sub000/internal/scheduler"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Run sync jobs and inspect their history",
	GroupID: "sync",
}

// syncOrder runs subjects first so later jobs can resolve subject names.
var syncOrder = []string{
	jobs.NameSubjects,
	jobs.NameGrades,
	jobs.NameSchedule,
	jobs.NameTasks,
	jobs.NamePerformance,
	jobs.NameAppVersion,
}

// orderJobs returns the requested names in sync order, or every registered
// job when none are requested.
func orderJobs(registered, requested []string) ([]string, error) {
	if len(requested) == 0 {
		requested = registered
	}
	for _, name := range requested {
		if !slices.Contains(registered, name) {
			return nil, fmt.Errorf("%w: %s (have %v)", scheduler.ErrJobNotRegistered, name, registered)
		}
	}
	ordered := make([]string, 0, len(requested))
	for _, name := range syncOrder {
		if slices.Contains(requested, name) {
			ordered = append(ordered, name)
		}
	}
	for _, name := range requested {
		if !slices.Contains(ordered, name) {
			ordered = append(ordered, name)
		}
	}
	return ordered, nil
}

type runResult struct {
	Job     string `json:"job"`
	Result  string `json:"result"`
	New     int    `json:"new"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

var syncRunCmd = &cobra.Command{
	Use:   "run [job...]",
	Short: "Run jobs once in the foreground (all jobs by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := appOptions{}
		if !jsonOut {
			opts.console = os.Stdout
		}
		a, err := newApp(cfg, opts)
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := orderJobs(a.registry.Names(), args)
		if err != nil {
			return err
		}

		var results []runResult
		failed := false
		for _, name := range names {
			rep := a.runner.Run(cmd.Context(), scheduler.Payload{JobName: name})
			r := runResult{Job: name, Result: rep.Result.String(), New: rep.New, Skipped: rep.Skipped}
			if rep.Err != nil {
				r.Error = rep.Err.Error()
			}
			if rep.Result != scheduler.Success {
				failed = true
			}
			results = append(results, r)

			if !jsonOut {
				line := fmt.Sprintf("%-12s %s  new=%d skipped=%d", name, output.FormatOutcome(r.Result), r.New, r.Skipped)
				if r.Error != "" {
					line += "  " + r.Error
				}
				fmt.Println(line)
			}
		}

		if jsonOut {
			if err := output.JSON(results); err != nil {
				return err
			}
		}
		if failed {
			return errors.New("some jobs did not succeed")
		}
		return nil
	},
}

var syncJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List registered jobs and their intervals",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		reqs := jobs.Requests(a.registry, cfg.Intervals)
		if jsonOut {
			return output.JSON(reqs)
		}
		for _, req := range reqs {
			every := "once at startup"
			if req.Periodic {
				every = "every " + req.Interval.String()
			}
			fmt.Printf("%-12s %s\n", req.JobName, every)
		}
		return nil
	},
}

var syncHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent job runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		job, _ := cmd.Flags().GetString("job")
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.JobRunsTail(cmd.Context(), job, limit)
		if err != nil {
			output.Error("read history: %v", err)
			return err
		}
		if jsonOut {
			return output.JSON(runs)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		for _, r := range runs {
			fmt.Println(output.FormatJobRun(r))
		}
		return nil
	},
}

func init() {
	syncHistoryCmd.Flags().String("job", "", "only this job")
	syncHistoryCmd.Flags().IntP("limit", "n", 20, "number of runs")

	syncCmd.AddCommand(syncRunCmd)
	syncCmd.AddCommand(syncJobsCmd)
	syncCmd.AddCommand(syncHistoryCmd)
	rootCmd.AddCommand(syncCmd)
}
