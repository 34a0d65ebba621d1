package main

import (
	"bufio"
	"fmt"

	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/bobmcallan/events-portal/internal/validation"
	"github.com/spf13/cobra"
)

func (c *cli) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change your profile",
	}
	cmd.AddCommand(c.profileShowCmd(), c.profileUpdateCmd(), c.profilePasswordCmd())
	return cmd
}

func (c *cli) profileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.client.Profile.Get(cmd.Context())
			if err != nil {
				return describe(err)
			}
			if c.jsonOut {
				return printJSON(cmd.OutOrStdout(), p)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:          %s\n", p.FullName())
			fmt.Fprintf(out, "Email:         %s\n", p.Email)
			fmt.Fprintf(out, "Phone:         %s\n", p.Phone)
			fmt.Fprintf(out, "Organization:  %s\n", p.Organization)
			fmt.Fprintf(out, "Bio:           %s\n", p.Bio)
			fmt.Fprintf(out, "Notifications: email=%t reminders=%t newsletter=%t\n",
				p.Preferences.EmailNotifications, p.Preferences.EventReminders, p.Preferences.NewsletterSubscription)
			return nil
		},
	}
}

func (c *cli) profileUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; unset flags keep their current value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := c.client.Profile.Get(cmd.Context())
			if err != nil {
				return describe(err)
			}

			data := models.UpdateProfileData{
				Firstname:    current.Firstname,
				Lastname:     current.Lastname,
				Email:        current.Email,
				Phone:        current.Phone,
				Organization: current.Organization,
				Bio:          current.Bio,
			}
			flags := cmd.Flags()
			for name, dst := range map[string]*string{
				"firstname":    &data.Firstname,
				"lastname":     &data.Lastname,
				"email":        &data.Email,
				"phone":        &data.Phone,
				"organization": &data.Organization,
				"bio":          &data.Bio,
			} {
				if flags.Changed(name) {
					v, _ := flags.GetString(name)
					*dst = v
				}
			}
			if flags.Changed("email-notifications") || flags.Changed("event-reminders") || flags.Changed("newsletter") {
				prefs := current.Preferences
				if flags.Changed("email-notifications") {
					prefs.EmailNotifications, _ = flags.GetBool("email-notifications")
				}
				if flags.Changed("event-reminders") {
					prefs.EventReminders, _ = flags.GetBool("event-reminders")
				}
				if flags.Changed("newsletter") {
					prefs.NewsletterSubscription, _ = flags.GetBool("newsletter")
				}
				data.Preferences = &prefs
			}

			if errs := validation.Profile(data); !errs.OK() {
				return invalid(errs)
			}
			p, err := c.client.Profile.Update(cmd.Context(), data)
			if err != nil {
				return describe(err)
			}
			if c.jsonOut {
				return printJSON(cmd.OutOrStdout(), p)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Profile updated successfully.")
			return nil
		},
	}
	f := cmd.Flags()
	f.String("firstname", "", "first name")
	f.String("lastname", "", "last name")
	f.String("email", "", "email")
	f.String("phone", "", "phone")
	f.String("organization", "", "organization")
	f.String("bio", "", "short bio")
	f.Bool("email-notifications", false, "receive email notifications")
	f.Bool("event-reminders", false, "receive event reminders")
	f.Bool("newsletter", false, "receive the newsletter")
	return cmd
}

func (c *cli) profilePasswordCmd() *cobra.Command {
	var change models.PasswordChange

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if change.CurrentPassword, err = prompt(in, cmd.ErrOrStderr(), "Current password", change.CurrentPassword); err != nil {
				return err
			}
			if change.NewPassword, err = prompt(in, cmd.ErrOrStderr(), "New password", change.NewPassword); err != nil {
				return err
			}
			if errs := validation.PasswordChange(change, change.NewPassword); !errs.OK() {
				return invalid(errs)
			}
			if err := c.client.Profile.UpdatePassword(cmd.Context(), change); err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password changed successfully.")
			return nil
		},
	}
	cmd.Flags().StringVar(&change.CurrentPassword, "current", "", "current password (prompted when omitted)")
	cmd.Flags().StringVar(&change.NewPassword, "new", "", "new password (prompted when omitted)")
	return cmd
}
