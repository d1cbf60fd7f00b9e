package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"loan-workbench/internal/common/validation"
	"loan-workbench/internal/models"
)

var (
	loginEmail    string
	loginPassword string
	signupName    string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in as a loan officer",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordInput(cmd.InOrStdin(), loginPassword)
		if err != nil {
			return err
		}
		s, err := env.auth.Login(cmd.Context(), loginEmail, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", s.FullName, s.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		env.auth.Logout(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Register a loan officer account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !validation.ValidateEmail(loginEmail) {
			return fmt.Errorf("a valid --email is required")
		}
		password, err := passwordInput(cmd.InOrStdin(), loginPassword)
		if err != nil {
			return err
		}
		err = env.auth.Signup(cmd.Context(), models.SignupRequest{
			Email:    strings.TrimSpace(loginEmail),
			FullName: strings.TrimSpace(signupName),
			Password: password,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Account created. Run 'loanctl login' to sign in.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		formatSession(cmd.OutOrStdout(), env.auth.Session(), time.Now())
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVar(&loginEmail, "email", "", "account email")
		c.Flags().StringVar(&loginPassword, "password", "", "password (read from stdin when omitted)")
		_ = c.MarkFlagRequired("email")
	}
	signupCmd.Flags().StringVar(&signupName, "name", "", "full name")
	_ = signupCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(loginCmd, logoutCmd, signupCmd, whoamiCmd)
}

// passwordInput returns flag when set, else LOANCTL_PASSWORD, else the first
// line of in.
func passwordInput(in io.Reader, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if p := os.Getenv("LOANCTL_PASSWORD"); p != "" {
		return p, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password is required")
	}
	return line, nil
}

func formatSession(out io.Writer, s *models.Session, now time.Time) {
	if s == nil {
		fmt.Fprintln(out, "Not signed in")
		return
	}
	fmt.Fprintf(out, "%s <%s>\n", s.FullName, s.Email)
	if s.Subject != "" {
		fmt.Fprintf(out, "Officer ID: %s\n", s.Subject)
	}
	switch {
	case s.ExpiresAt.IsZero():
	case s.IsExpired(now):
		fmt.Fprintln(out, "Token: expired")
	default:
		fmt.Fprintf(out, "Token: valid for %s\n", s.ExpiresAt.Sub(now).Round(time.Minute))
	}
}
