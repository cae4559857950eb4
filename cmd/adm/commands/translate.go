package commands

import (
	"fmt"
	"os"
	"strings"

	"borneo/internal/models"
	"borneo/internal/services"

	"github.com/spf13/cobra"
)

// TranslateCommand returns the one-shot translate command. Fragments are
// printed as the provider produces them.
func TranslateCommand(env *Env) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "translate TEXT...",
		Short: "Translate text, streaming the answer to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, t, err := parsePair(from, to)
			if err != nil {
				return err
			}

			c, err := env.Container(ctx)
			if err != nil {
				return err
			}
			svc, err := c.GetTranslationService()
			if err != nil {
				return err
			}

			req := models.TranslationRequest{Text: strings.Join(args, " "), From: f, To: t}
			chunks := make(chan string)
			done := make(chan struct{})
			go func() {
				defer close(done)
				for fragment := range chunks {
					fmt.Fprint(os.Stdout, fragment)
				}
			}()

			result, err := svc.TranslateStream(ctx, req, chunks)
			close(chunks)
			<-done
			fmt.Println()
			if err != nil {
				return err
			}
			if result.FromCache {
				fmt.Fprintln(os.Stderr, "(from dictionary)")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", string(models.Indonesian), "Source language")
	cmd.Flags().StringVar(&to, "to", string(models.Bakumpai), "Target language")
	return cmd
}

// FactsCommand returns the cultural facts command
func FactsCommand(env *Env) *cobra.Command {
	var topic string
	var count int

	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Print short cultural facts about the Dayak people",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := env.Container(ctx)
			if err != nil {
				return err
			}
			learning, err := c.GetLearningService()
			if err != nil {
				return err
			}

			facts, err := learning.Facts(ctx, topic, count)
			if err != nil {
				return err
			}
			for i, fact := range facts {
				fmt.Printf("%d. %s\n", i+1, fact)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Optional topic")
	cmd.Flags().IntVar(&count, "count", services.DefaultFactCount, "Number of facts")
	return cmd
}
