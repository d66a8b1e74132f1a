package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbower44022/CRMExtender-sub006/internal/store"
)

func newConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Inspect and manage conversations",
	}
	cmd.AddCommand(newConversationsListCmd())
	cmd.AddCommand(newConversationsShowCmd())
	cmd.AddCommand(newConversationsAssignCmd())
	cmd.AddCommand(newConversationsArchiveCmd())
	cmd.AddCommand(newConversationsProcessedCmd())
	return cmd
}

func newConversationsListCmd() *cobra.Command {
	var (
		pending  bool
		archived bool
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recently active first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			convs, err := db.ListConversations(cmd.Context(), store.ListConversationOptions{
				NeedsProcessingOnly: pending,
				IncludeArchived:     archived,
				Limit:               limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONConversations(convs))
			}

			if len(convs) == 0 {
				fmt.Println("No conversations.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tPARTICIPANTS\tLAST ACTIVITY\tPENDING")
			for _, c := range convs {
				lastAt := "-"
				if !c.LastMessageAt.IsZero() {
					lastAt = c.LastMessageAt.Format(time.DateOnly)
				}
				needsWork := ""
				if c.NeedsProcessing() {
					needsWork = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
					c.ID, c.Title, c.MessageCount, c.ParticipantCount, lastAt, needsWork)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "only conversations awaiting processing")
	cmd.Flags().BoolVar(&archived, "archived", false, "include archived conversations")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum conversations to list")
	return cmd
}

func newConversationsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Show a conversation with its messages and participants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			conv, err := db.GetConversation(ctx, args[0])
			if err != nil {
				return fmt.Errorf("conversation %s not found", args[0])
			}
			msgs, err := db.ListConversationMessages(ctx, conv.ID)
			if err != nil {
				return fmt.Errorf("failed to load messages: %w", err)
			}
			parts, err := db.ListParticipants(ctx, conv.ID)
			if err != nil {
				return fmt.Errorf("failed to load participants: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonConversationDetail{
					jsonConversation: toJSONConversation(conv),
					Messages:         toJSONMessages(msgs),
					Participants:     toJSONParticipants(parts),
				})
			}

			fmt.Printf("%s\n", conv.Title)
			fmt.Printf("%d messages, %d participants\n", conv.MessageCount, conv.ParticipantCount)
			if conv.Archived {
				fmt.Println("(archived)")
			}
			fmt.Println()

			for _, p := range parts {
				marker := ""
				if p.ContactID != "" {
					marker = " *"
				}
				fmt.Printf("  %s (%d)%s\n", p.Address, p.MessageCount, marker)
			}
			fmt.Println()

			for _, m := range msgs {
				fmt.Printf("--- %s | %s\n", m.From, m.SentAt.Format("2006-01-02 15:04"))
				if m.Subject != "" {
					fmt.Printf("    %s\n", m.Subject)
				}
				if m.Body != "" {
					fmt.Printf("%s\n", m.Body)
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func newConversationsAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <conversation-id> <message-id>",
		Short: "Manually assign a message to a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if _, err := db.GetConversation(ctx, args[0]); err != nil {
				return fmt.Errorf("conversation %s not found", args[0])
			}
			if _, err := db.GetMessage(ctx, args[1]); err != nil {
				return fmt.Errorf("message %s not found", args[1])
			}

			if err := db.AssignMessage(ctx, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to assign message: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "assign", ID: args[0]})
			}
			fmt.Printf("Message %s assigned to conversation %s\n", args[1], args[0])
			return nil
		},
	}
}

func newConversationsArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <conversation-id>",
		Short: "Archive a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.ArchiveConversation(cmd.Context(), args[0]); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "archive", ID: args[0]})
			}
			fmt.Printf("Conversation archived: %s\n", args[0])
			return nil
		},
	}
}

func newConversationsProcessedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "processed <conversation-id>",
		Short: "Mark a conversation as processed by the classifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.MarkConversationProcessed(cmd.Context(), args[0], time.Now().UTC()); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "processed", ID: args[0]})
			}
			fmt.Printf("Conversation marked processed: %s\n", args[0])
			return nil
		},
	}
}
