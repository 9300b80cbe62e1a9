package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/intake"
	"github.com/clinic/clinic/internal/domain/scheduling"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/events"
)

func appointmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appointments",
		Short: "Inspect the appointment agenda",
	}

	// appointments list
	var status, query string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List appointments filtered by status and text query",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := scheduling.ParseStatusFilter(status)
			if err != nil {
				return err
			}
			return withScheduling(cmd.Context(), func(svc *scheduling.Service) error {
				list, err := svc.List(cmd.Context(), filter, query)
				if err != nil {
					return err
				}
				return printAppointments(cmd.OutOrStdout(), list)
			})
		},
	}
	listCmd.Flags().StringVar(&status, "status", "", "scheduled, completed or canceled (default all)")
	listCmd.Flags().StringVar(&query, "query", "", "match client name, procedure, phone or date")

	// appointments next
	nextCmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next scheduled appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScheduling(cmd.Context(), func(svc *scheduling.Service) error {
				next, err := svc.Next(cmd.Context())
				if err != nil {
					return err
				}
				printNext(cmd.OutOrStdout(), next)
				return nil
			})
		},
	}

	cmd.AddCommand(listCmd, nextCmd)
	return cmd
}

func bmiCmd() *cobra.Command {
	var height, weight string
	cmd := &cobra.Command{
		Use:   "bmi",
		Short: "Compute a body mass index and its classification",
		RunE: func(cmd *cobra.Command, args []string) error {
			res := intake.Evaluate(&intake.Measurements{Height: height, StartWeight: weight})
			printBMI(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&height, "height", "", "height in centimetres")
	cmd.Flags().StringVar(&weight, "weight", "", "weight in kilograms")
	return cmd
}

// withScheduling opens a short-lived pool for one-shot commands.
func withScheduling(ctx context.Context, fn func(svc *scheduling.Service) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, db.PoolOptions{URL: cfg.DatabaseURL, MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(scheduling.NewService(scheduling.NewAppointmentRepo(pool), events.NopPublisher{}, loc))
}

func printAppointments(w io.Writer, list []scheduling.Appointment) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No appointments found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTIME\tCLIENT\tPHONE\tPROCEDURE\tSTATUS")
	for i := range list {
		a := &list[i]
		clock, ok := scheduling.NormalizeTime(a.Time)
		if !ok {
			clock = a.Time
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.DisplayDate(), clock, a.ClientName, a.ClientPhone, a.ProcedureDescription, a.Status)
	}
	return tw.Flush()
}

func printNext(w io.Writer, next scheduling.NextSummary) {
	if !next.Found {
		fmt.Fprintf(w, "No upcoming appointment (%s, client %s, procedure %s)\n", next.Time, next.ClientName, next.Procedure)
		return
	}
	fmt.Fprintf(w, "%s %s  %s  %s\n", next.Date, next.Time, next.ClientName, next.Procedure)
}

func printBMI(w io.Writer, res intake.BMIResult) {
	if res.BMI == nil {
		fmt.Fprintln(w, res.Message)
		return
	}
	fmt.Fprintf(w, "BMI %.2f (%s)\n", *res.BMI, res.Band)
}
