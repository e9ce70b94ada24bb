package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kosavsech/SchoolDiary-sub000/internal/auth"
	"github.com/kosavsech/SchoolDiary-sub000/internal/output"
	"github.com/kosavsech/SchoolDiary-sub000/internal/portal"
)

var errFieldRequired = errors.New("required")

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errFieldRequired
	}
	return nil
}

// promptCredentials asks for the login on a terminal, or reads the
// password as the first line of stdin otherwise.
func promptCredentials(username string) (string, string, error) {
	var password string
	if term.IsTerminal(int(os.Stdin.Fd())) {
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Логин").
				Value(&username).
				Validate(required),
			huh.NewInput().
				Title("Пароль").
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(required),
		).Title(cfg.PortalURL))
		form.WithTheme(huh.ThemeDracula())
		if err := form.Run(); err != nil {
			return "", "", err
		}
		return strings.TrimSpace(username), password, nil
	}

	if username == "" {
		return "", "", fmt.Errorf("--username is required when stdin is not a terminal")
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", "", fmt.Errorf("read password: %w", err)
	}
	password = strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", "", fmt.Errorf("password required")
	}
	return username, password, nil
}

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Log in to the school portal",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		username, password, err := promptCredentials(username)
		if err != nil {
			return err
		}

		client := portal.New(cfg.PortalURL, "")
		client.Timeout = cfg.FetchTimeout
		sessionID, err := client.Login(cmd.Context(), username, password)
		if err != nil {
			if errors.Is(err, portal.ErrUnauthorized) {
				output.Error("wrong username or password")
			} else {
				output.Error("login: %v", err)
			}
			return err
		}

		creds := &auth.Credentials{
			PortalURL: cfg.PortalURL,
			Username:  username,
			SessionID: sessionID,
			CreatedAt: time.Now().UTC(),
		}
		if err := auth.Save(cfg.DataDir, creds); err != nil {
			output.Error("save credentials: %v", err)
			return err
		}
		output.Success("Logged in as %s", username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Forget the portal session",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.Clear(cfg.DataDir); err != nil {
			output.Error("logout: %v", err)
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the saved portal session",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := auth.Load(cfg.DataDir)
		if err != nil {
			output.Error("load credentials: %v", err)
			return err
		}
		if !creds.LoggedIn() {
			fmt.Println("Not logged in.")
			return nil
		}
		if jsonOut {
			return output.JSON(map[string]any{
				"username":   creds.Username,
				"portal_url": creds.PortalURL,
				"created_at": creds.CreatedAt,
			})
		}
		fmt.Printf("User:   %s\n", creds.Username)
		fmt.Printf("Portal: %s\n", creds.PortalURL)
		fmt.Printf("Since:  %s\n", output.FormatTimeAgo(creds.CreatedAt))
		return nil
	},
}

func init() {
	loginCmd.Flags().StringP("username", "u", "", "portal username")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
