package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kosavsech/SchoolDiary-sub000/internal/appversion"
	"github.com/kosavsech/SchoolDiary-sub000/internal/output"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Show the build version",
	GroupID: "system",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("diary %s (build %d)\n", version, cfg.BuildVersionCode)
	},
}

var versionCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare this build with the latest release",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.VersionURL == "" {
			output.Warning("version_url is not configured")
			return nil
		}
		status, err := appversion.NewChecker(cfg.VersionURL).Check(cmd.Context(), cfg.BuildVersionCode)
		if err != nil {
			output.Error("version check: %v", err)
			return err
		}
		if jsonOut {
			return output.JSON(map[string]any{
				"state":       status.State.String(),
				"local_code":  status.LocalCode,
				"remote_code": status.RemoteCode,
				"remote_name": status.RemoteName,
				"url":         status.UpdateURL,
			})
		}
		fmt.Println(output.FormatVersion(status))
		return nil
	},
}

func init() {
	versionCmd.AddCommand(versionCheckCmd)
	rootCmd.AddCommand(versionCmd)
}
