package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbower44022/CRMExtender-sub006/internal/domain"
)

func newContactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Manage known contacts",
	}
	cmd.AddCommand(newContactAddCmd())
	cmd.AddCommand(newContactListCmd())
	return cmd
}

func newContactAddCmd() *cobra.Command {
	var name, company string

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Register a contact for participant resolution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			contact := &domain.Contact{
				Email:   args[0],
				Name:    name,
				Company: company,
			}
			if err := db.CreateContact(cmd.Context(), contact); err != nil {
				return fmt.Errorf("failed to add contact: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "add", ID: contact.ID, Email: contact.Email})
			}

			fmt.Printf("Contact added: %s\n", contact.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "contact display name")
	cmd.Flags().StringVar(&company, "company", "", "contact company")
	return cmd
}

func newContactListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			contacts, err := db.ListContacts(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list contacts: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONContacts(contacts))
			}

			if len(contacts) == 0 {
				fmt.Println("No contacts registered.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EMAIL\tNAME\tCOMPANY\tINTERACTIONS\tLAST SEEN")
			for _, c := range contacts {
				lastSeen := "-"
				if !c.LastInteractionAt.IsZero() {
					lastSeen = c.LastInteractionAt.Format(time.DateOnly)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					c.Email, c.Name, c.Company, c.InteractionCount, lastSeen)
			}
			return w.Flush()
		},
	}
}
