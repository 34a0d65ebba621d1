package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bobmcallan/events-portal/internal/models"
	"github.com/bobmcallan/events-portal/internal/validation"
	"github.com/spf13/cobra"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func (c *cli) eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"event"},
		Short:   "List, inspect and manage events",
	}
	cmd.AddCommand(
		c.eventsListCmd(),
		c.eventsShowCmd(),
		c.eventsRegisterCmd(),
		c.eventsCancelCmd(),
		c.eventsCreateCmd(),
		c.eventsDeleteCmd(),
	)
	return cmd
}

func (c *cli) eventsListCmd() *cobra.Command {
	var (
		filter models.EventFilter
		status string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Status = models.EventStatus(status)
			events, err := c.client.Events.List(cmd.Context())
			if err != nil {
				return describe(err)
			}
			events = filter.Apply(events)
			if c.jsonOut {
				return printJSON(cmd.OutOrStdout(), events)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tTITLE\tDATE\tCATEGORY\tSTATUS\tSPOTS\tREGISTERED")
			for i := range events {
				e := &events[i]
				registered := ""
				if e.IsRegistered {
					registered = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\n",
					e.ID, e.Title, shortDate(e.Date), e.Category.Name, e.Status, e.SpotsLeft(), e.Capacity, registered)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "text matched against title, description and location")
	cmd.Flags().StringVar(&filter.CategoryID, "category", "", "category id")
	cmd.Flags().StringVar(&status, "status", "", "draft, published, cancelled or completed")
	return cmd
}

func (c *cli) eventsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show EVENT_ID",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.client.Events.Get(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			if c.jsonOut {
				return printJSON(cmd.OutOrStdout(), e)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  [%s]\n", e.Title, e.Status)
			fmt.Fprintf(out, "When:      %s to %s\n", shortDate(e.Date), shortDate(e.EndDate))
			fmt.Fprintf(out, "Where:     %s\n", e.Location)
			fmt.Fprintf(out, "Category:  %s\n", e.Category.Name)
			fmt.Fprintf(out, "Organizer: %s %s\n", e.Organizer.Firstname, e.Organizer.Lastname)
			fmt.Fprintf(out, "Capacity:  %d of %d spots left\n", e.SpotsLeft(), e.Capacity)
			if e.Price > 0 {
				fmt.Fprintf(out, "Price:     %.2f\n", e.Price)
			}
			if len(e.Features) > 0 {
				fmt.Fprintf(out, "Features:  %s\n", strings.Join(e.Features, ", "))
			}
			if e.IsRegistered {
				fmt.Fprintln(out, "You are registered for this event.")
			}
			if e.Description != "" {
				fmt.Fprintf(out, "\n%s\n", e.Description)
			}
			return nil
		},
	}
}

func (c *cli) eventsRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register EVENT_ID",
		Short: "Register for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.client.Events.Register(cmd.Context(), args[0]); err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully registered for the event!")
			return nil
		},
	}
}

func (c *cli) eventsCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel EVENT_ID",
		Short: "Cancel your registration for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.client.Events.CancelRegistration(cmd.Context(), args[0]); err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Your registration has been cancelled.")
			return nil
		},
	}
}

func (c *cli) eventsCreateCmd() *cobra.Command {
	var (
		form   models.EventFormData
		status string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form.Status = models.EventStatus(status)
			if errs := validation.Event(form, time.Now()); !errs.OK() {
				return invalid(errs)
			}
			form.Date = validation.APIDate(form.Date)
			form.EndDate = validation.APIDate(form.EndDate)

			e, err := c.client.Events.Create(cmd.Context(), form)
			if err != nil {
				return describe(err)
			}
			if c.jsonOut {
				return printJSON(cmd.OutOrStdout(), e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Event created with id %s.\n", e.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Title, "title", "", "title")
	f.StringVar(&form.Description, "description", "", "description")
	f.StringVar(&form.Date, "date", "", "start, e.g. 2030-05-01T18:30")
	f.StringVar(&form.EndDate, "end-date", "", "end, e.g. 2030-05-01T21:00")
	f.StringVar(&form.Location, "location", "", "location")
	f.IntVar(&form.Capacity, "capacity", 0, "number of places")
	f.StringVar(&form.CategoryID, "category", "", "category id (see `eventctl categories list`)")
	f.StringVar(&status, "status", string(models.EventDraft), "draft, published, cancelled or completed")
	f.Float64Var(&form.Price, "price", 0, "ticket price")
	f.StringVar(&form.ImageURL, "image", "", "image URL")
	f.StringSliceVar(&form.Features, "feature", nil, "feature line, repeatable")
	return cmd
}

func (c *cli) eventsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete EVENT_ID",
		Short: "Delete an event (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.client.Events.Delete(cmd.Context(), args[0]); err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Event deleted.")
			return nil
		},
	}
}

func (c *cli) registrationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registrations",
		Short: "Review registrations for an event (admin)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list EVENT_ID",
			Short: "List registrations for an event",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				regs, err := c.client.Events.Registrations(cmd.Context(), args[0])
				if err != nil {
					return describe(err)
				}
				if c.jsonOut {
					return printJSON(cmd.OutOrStdout(), regs)
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tSTATUS\tREGISTERED")
				for _, r := range regs {
					fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\n",
						r.ID, r.User.Firstname, r.User.Lastname, r.User.Email, r.Status, shortDate(r.CreatedAt))
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "set-status EVENT_ID REGISTRATION_ID STATUS",
			Short: "Set a registration to pending, confirmed or cancelled",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				if errs := validation.RegistrationStatus(args[2]); !errs.OK() {
					return invalid(errs)
				}
				reg, err := c.client.Events.UpdateRegistrationStatus(cmd.Context(), args[0], args[1], models.RegistrationStatus(args[2]))
				if err != nil {
					return describe(err)
				}
				if c.jsonOut {
					return printJSON(cmd.OutOrStdout(), reg)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registration marked as %s.\n", args[2])
				return nil
			},
		},
	)
	return cmd
}

func (c *cli) categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Event categories",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := c.client.Categories.List(cmd.Context())
			if err != nil {
				return describe(err)
			}
			if c.jsonOut {
				return printJSON(cmd.OutOrStdout(), categories)
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tDESCRIPTION")
			for _, cat := range categories {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cat.ID, cat.Name, cat.Color, cat.Description)
			}
			return tw.Flush()
		},
	})
	return cmd
}

// shortDate renders an API date for a table cell.
func shortDate(s string) string {
	t, ok := validation.ParseDate(s)
	if !ok {
		return s
	}
	return t.Local().Format("2006-01-02 15:04")
}
