package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// HistoryCommands returns the translation history commands
func HistoryCommands(env *Env) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Translation history commands",
		Long: `Translation history commands. History is kept per browser session id.

Available commands:
  list   - List the history of a session
  clear  - Remove the history of a session`,
	}

	historyCmd.AddCommand(historyListCmd(env))
	historyCmd.AddCommand(historyClearCmd(env))

	return historyCmd
}

func historyListCmd(env *Env) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the history of a session, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := env.Container(ctx)
			if err != nil {
				return err
			}
			s, err := c.GetStore()
			if err != nil {
				return err
			}

			items, err := s.Load(ctx, session)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No history")
				return nil
			}
			for _, item := range items {
				fmt.Printf("%s  %s -> %s\n  %s\n  %s\n",
					item.Date.Format("2006-01-02 15:04:05"), item.From, item.To, item.InputText, item.OutputText)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "Browser session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func historyClearCmd(env *Env) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the history of a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := env.Container(ctx)
			if err != nil {
				return err
			}
			s, err := c.GetStore()
			if err != nil {
				return err
			}

			if err := s.Clear(ctx, session); err != nil {
				return err
			}
			fmt.Printf("Cleared history of session %s\n", session)
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "Browser session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
