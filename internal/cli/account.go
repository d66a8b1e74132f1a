package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
	"github.com/dbower44022/CRMExtender-sub006/internal/provider/gmail"
	"github.com/dbower44022/CRMExtender-sub006/internal/store"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage email accounts",
	}
	cmd.AddCommand(newAccountAddCmd())
	cmd.AddCommand(newAccountListCmd())
	cmd.AddCommand(newAccountRemoveCmd())
	return cmd
}

func newAccountAddCmd() *cobra.Command {
	var (
		email        string
		backfillDays int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a Gmail account via OAuth",
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

			tokenStore := store.NewKeyringTokenStore()
			adapter := gmail.New(tokenStore)

			// Use email as account ID if provided, otherwise a temporary ID
			// replaced after OAuth once the mailbox profile is known.
			accountID := email
			if accountID == "" {
				accountID = fmt.Sprintf("gmail-%d", time.Now().UnixNano())
			}

			ctx := cmd.Context()
			fmt.Println("Starting Gmail OAuth flow...")
			profileEmail, err := adapter.Authorize(ctx, accountID)
			if err != nil {
				return fmt.Errorf("failed to authorize: %w", err)
			}

			if email == "" {
				email = profileEmail

				// Re-save the token under the real email as account ID,
				// and clean up the temporary one.
				token, err := tokenStore.LoadToken(accountID)
				if err != nil {
					return fmt.Errorf("failed to reload token: %w", err)
				}
				if err := tokenStore.SaveToken(email, token); err != nil {
					return fmt.Errorf("failed to re-save token: %w", err)
				}
				if delErr := tokenStore.DeleteToken(accountID); delErr != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to delete temporary token: %v\n", delErr)
				}
				accountID = email
			}

			if backfillDays <= 0 {
				backfillDays = cfg.Sync.BackfillDays
			}

			account := &domain.Account{
				ID:           accountID,
				Email:        email,
				Provider:     "gmail",
				DisplayName:  email,
				BackfillDays: backfillDays,
				CreatedAt:    time.Now(),
			}

			if err := db.CreateAccount(ctx, account); err != nil {
				return fmt.Errorf("failed to store account: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "add", ID: accountID, Email: email})
			}

			fmt.Printf("Account added: %s\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address (auto-detected if omitted)")
	cmd.Flags().IntVar(&backfillDays, "backfill-days", 0, "initial sync window in days (default from config)")
	return cmd
}

func newAccountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			accounts, err := db.ListAccounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONAccounts(accounts))
			}

			if len(accounts) == 0 {
				fmt.Println("No accounts configured. Run 'crmextender account add' to add one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tPROVIDER\tSYNCED\tCREATED")
			for _, a := range accounts {
				synced := "no"
				if a.InitialSyncDone {
					synced = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					a.ID,
					a.Email,
					a.Provider,
					synced,
					a.CreatedAt.Format(time.DateOnly),
				)
			}
			return w.Flush()
		},
	}
}

func newAccountRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <account-id>",
		Short: "Remove an account and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID := args[0]

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if _, err := db.GetAccount(ctx, accountID); err != nil {
				return fmt.Errorf("account %s not found", accountID)
			}

			if err := db.DeleteAccount(ctx, accountID); err != nil {
				return fmt.Errorf("failed to remove account: %w", err)
			}

			tokenStore := store.NewKeyringTokenStore()
			if err := tokenStore.DeleteToken(accountID); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to delete stored token: %v\n", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "remove", ID: accountID})
			}

			fmt.Printf("Account removed: %s\n", accountID)
			return nil
		},
	}
}
