package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
	"github.com/dbower44022/CRMExtender-sub006/internal/engine"
	"github.com/dbower44022/CRMExtender-sub006/internal/provider/gmail"
	"github.com/dbower44022/CRMExtender-sub006/internal/store"
)

func newSyncCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync all accounts (or one with --account)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := resolveGmailCredentials(cfg); err != nil {
				return err
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if cfg.Sync.RunTimeout != "" {
				timeout, err := time.ParseDuration(cfg.Sync.RunTimeout)
				if err != nil {
					return fmt.Errorf("invalid sync.run_timeout %q: %w", cfg.Sync.RunTimeout, err)
				}
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			o := engine.NewOrchestrator(db, cfg, gmail.New(store.NewKeyringTokenStore()))

			var results []engine.AccountResult
			if accountFlag != "" {
				account, err := db.GetAccount(ctx, accountFlag)
				if err != nil {
					return fmt.Errorf("account %s not found", accountFlag)
				}
				results = []engine.AccountResult{o.RunAccount(ctx, account)}
			} else {
				report, err := o.RunAll(ctx)
				if err != nil {
					return err
				}
				results = report.Results
			}

			if jsonFlag {
				return printJSON(toJSONSyncResults(results))
			}
			return printSyncResults(results)
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "sync only this account ID")
	return cmd
}

// printSyncResults renders the per-account outcome table. Per-account
// failures are reported here, not as a command error: a degraded run still
// synced what it could.
func printSyncResults(results []engine.AccountResult) error {
	if len(results) == 0 {
		fmt.Println("No accounts to sync. Run 'crmextender account add' first.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tSTATUS\tFETCHED\tNEW\tUPDATED\tSKIPPED")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
			r.Email, r.Status, r.Fetched, r.New, r.Updated, r.Skipped)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, r := range results {
		if r.Err != nil && r.Status != domain.SyncSuccess {
			fmt.Fprintf(os.Stderr, "%s: %v\n", r.Email, r.Err)
		}
	}
	return nil
}
