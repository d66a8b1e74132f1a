package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var (
		accountFlag string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := db.ListSyncLog(cmd.Context(), accountFlag, limit)
			if err != nil {
				return fmt.Errorf("failed to list sync log: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONLogEntries(entries))
			}

			if len(entries) == 0 {
				fmt.Println("No sync runs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tACCOUNT\tTYPE\tSTATUS\tFETCHED\tNEW\tUPDATED\tERROR")
			for _, e := range entries {
				errMsg := e.Error
				if len(errMsg) > 60 {
					errMsg = errMsg[:57] + "..."
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					e.StartedAt.Format(time.DateTime),
					e.AccountID, e.Type, e.Status,
					e.Fetched, e.New, e.Updated, errMsg)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "only runs for this account ID")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show")
	return cmd
}
