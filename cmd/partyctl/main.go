/*
partyctl - Admin CLI for the party engine.

Runs reconciliation sweeps and reports outstanding installments against the
same SQLite database the server uses. Useful from cron and for operators
who want to poke the engine without the HTTP API.
*/
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/warp/party-engine/internal/logger"
	"github.com/warp/party-engine/party"
	"github.com/warp/party-engine/store/sqlite"
)

var (
	dbPath  string
	verbose bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "partyctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "partyctl",
		Short: "Admin commands for the party engine",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			if dbPath == "" {
				dbPath = os.Getenv("PARTY_DB")
			}
			if dbPath == "" {
				dbPath = "party.db"
			}
			level := "warn"
			if verbose {
				level = "debug"
			}
			logger.Setup(level, "console")
		},
	}

	root.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default $PARTY_DB or party.db)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(newReconcileCmd())
	root.AddCommand(newPaymentsCmd())
	root.AddCommand(newOverdueCmd())
	return root
}

// withReconciler opens the store and hands a wired reconciler to fn.
func withReconciler(fn func(*party.Reconciler, party.Store) error) error {
	store, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dbPath, err)
	}
	defer store.Close()

	rec := party.NewReconciler(store, party.SystemClock{}, logger.WithComponent("partyctl"))
	return fn(rec, store)
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Sweep confirmed and ended_pending parties and advance statuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReconciler(func(rec *party.Reconciler, _ party.Store) error {
				result, err := rec.AutoUpdateStatuses(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("checked %d, updated %d, skipped %d, failed %d\n",
					result.Checked, result.Updated, result.Skipped, len(result.Failures))
				for _, f := range result.Failures {
					fmt.Printf("  party %s: %v\n", f.PartyID, f.Err)
				}
				return nil
			})
		},
	}
}

func newPaymentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payments",
		Short: "Move fully-settled ended_pending parties to ended",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReconciler(func(rec *party.Reconciler, _ party.Store) error {
				updated, err := rec.CheckAndUpdateCompletedPayments(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("moved %d parties to ended\n", updated)
				return nil
			})
		},
	}
}

func newOverdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List installments past their due date and still unpaid",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReconciler(func(rec *party.Reconciler, store party.Store) error {
				overdue, err := store.ListOverdueInstallments(cmd.Context(), rec.Clock.Now())
				if err != nil {
					return err
				}
				if len(overdue) == 0 {
					fmt.Println("no overdue installments")
					return nil
				}
				for _, in := range overdue {
					fmt.Printf("party %s  installment %d/%s  due %s  amount %s\n",
						in.PartyID, in.SequenceNo, in.InvoiceID,
						in.DueDate.Format("2006-01-02"), in.Amount)
				}
				return nil
			})
		},
	}
}
