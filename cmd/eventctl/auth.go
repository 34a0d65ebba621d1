package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/bobmcallan/events-portal/internal/validation"
	"github.com/spf13/cobra"
)

// prompt reads one line from in when value is empty.
func prompt(in *bufio.Reader, out io.Writer, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(out, "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

func (c *cli) loginCmd() *cobra.Command {
	var creds models.LoginCredentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if creds.Email, err = prompt(in, cmd.ErrOrStderr(), "Email", creds.Email); err != nil {
				return err
			}
			if creds.Password, err = prompt(in, cmd.ErrOrStderr(), "Password", creds.Password); err != nil {
				return err
			}
			if errs := validation.Login(creds); !errs.OK() {
				return invalid(errs)
			}

			resp, err := c.client.Auth.Login(cmd.Context(), creds)
			if err != nil {
				return describe(err)
			}
			if resp.User == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>\n", resp.User.FullName(), resp.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.client.Auth.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

type statusOutput struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	ExpiresAt     string       `json:"expires_at,omitempty"`
	APIURL        string       `json:"api_url"`
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is logged in and when the access token expires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := c.client.Gateway.Session()
			// A stale access token is still refreshable, so report the
			// stored flag rather than CheckAuth.
			snap := store.Snapshot()
			st := statusOutput{
				Authenticated: snap.IsAuthenticated,
				User:          snap.User,
				APIURL:        c.client.Gateway.BaseURL(),
			}
			if snap.ExpiresAt > 0 {
				st.ExpiresAt = snap.ExpiryTime().Format(time.RFC3339)
			}
			if c.jsonOut {
				return printJSON(cmd.OutOrStdout(), st)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "API:      %s\n", st.APIURL)
			if !st.Authenticated || st.User == nil {
				fmt.Fprintln(out, "Session:  not logged in")
				return nil
			}
			fmt.Fprintf(out, "User:     %s <%s>\n", st.User.FullName(), st.User.Email)
			fmt.Fprintf(out, "Roles:    %s\n", strings.Join(st.User.Roles, ", "))
			if snap.ValidAt(store.Now()) {
				fmt.Fprintf(out, "Session:  valid until %s\n", st.ExpiresAt)
			} else {
				fmt.Fprintf(out, "Session:  access token expired at %s, it is refreshed on the next call\n", st.ExpiresAt)
			}
			return nil
		},
	}
}

func (c *cli) registerCmd() *cobra.Command {
	var (
		creds   models.RegisterCredentials
		confirm string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if creds.Password, err = prompt(in, cmd.ErrOrStderr(), "Password", creds.Password); err != nil {
				return err
			}
			if confirm == "" {
				confirm = creds.Password
			}
			if errs := validation.Register(creds, confirm); !errs.OK() {
				return invalid(errs)
			}

			if err := c.client.Auth.Register(cmd.Context(), creds); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s. Run `eventctl login` to sign in.\n", creds.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Firstname, "firstname", "", "first name")
	cmd.Flags().StringVar(&creds.Lastname, "lastname", "", "last name")
	cmd.Flags().StringVarP(&creds.Email, "email", "e", "", "email")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation (defaults to --password)")
	return cmd
}
