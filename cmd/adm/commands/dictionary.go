package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"borneo/internal/models"
	contextutils "borneo/internal/utils"

	"github.com/spf13/cobra"
)

// DictionaryCommands returns the override dictionary commands
func DictionaryCommands(env *Env) *cobra.Command {
	dictCmd := &cobra.Command{
		Use:   "dictionary",
		Short: "Override dictionary commands",
		Long: `Override dictionary commands.

Available commands:
  import   - Import a "source,translation" file for a language pair
  lookup   - Show the override stored for a phrase
  uploads  - List previous imports`,
	}

	dictCmd.AddCommand(dictionaryImportCmd(env))
	dictCmd.AddCommand(dictionaryLookupCmd(env))
	dictCmd.AddCommand(dictionaryUploadsCmd(env))

	return dictCmd
}

// parsePair parses both language flags
func parsePair(from, to string) (models.Language, models.Language, error) {
	f, err := models.ParseLanguage(from)
	if err != nil {
		return "", "", err
	}
	t, err := models.ParseLanguage(to)
	if err != nil {
		return "", "", err
	}
	return f, t, nil
}

func dictionaryImportCmd(env *Env) *cobra.Command {
	var file, from, to string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a dictionary file",
		Long: `Import a CSV or TXT file with one "source,translation" pair per line.

Each line is split on the first comma, so translations may contain commas.
Lines missing either side are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			f, t, err := parsePair(from, to)
			if err != nil {
				return err
			}

			c, err := env.Container(ctx)
			if err != nil {
				return err
			}
			dict, err := c.GetDictionaryService()
			if err != nil {
				return err
			}

			fh, err := os.Open(file)
			if err != nil {
				return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "failed to open %s: %v", file, err)
			}
			defer func() { _ = fh.Close() }()

			item, err := dict.Import(ctx, filepath.Base(file), f, t, fh)
			if err != nil {
				return contextutils.WrapError(err, "import failed")
			}
			fmt.Printf("Imported %d phrases for %s -> %s from %s\n", item.Count, item.From, item.To, item.FileName)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Dictionary file (.csv or .txt)")
	cmd.Flags().StringVar(&from, "from", string(models.Indonesian), "Source language")
	cmd.Flags().StringVar(&to, "to", string(models.Bakumpai), "Target language")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func dictionaryLookupCmd(env *Env) *cobra.Command {
	var from, to, text string

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Show the override for a phrase",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			f, t, err := parsePair(from, to)
			if err != nil {
				return err
			}

			c, err := env.Container(ctx)
			if err != nil {
				return err
			}
			dict, err := c.GetDictionaryService()
			if err != nil {
				return err
			}

			translation, found, err := dict.Lookup(ctx, f, t, text)
			if err != nil {
				return err
			}
			if !found {
				return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "no override for %q", text)
			}
			fmt.Println(translation)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", string(models.Indonesian), "Source language")
	cmd.Flags().StringVar(&to, "to", string(models.Bakumpai), "Target language")
	cmd.Flags().StringVar(&text, "text", "", "Phrase to look up")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func dictionaryUploadsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "uploads",
		Short: "List dictionary imports, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := env.Container(ctx)
			if err != nil {
				return err
			}
			dict, err := c.GetDictionaryService()
			if err != nil {
				return err
			}

			items, err := dict.Uploads(ctx)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No uploads")
				return nil
			}

			fmt.Printf("%-20s %-30s %-12s %-12s %-8s\n", "Date", "File", "From", "To", "Count")
			for _, item := range items {
				fmt.Printf("%-20s %-30s %-12s %-12s %-8d\n",
					item.Date.Format("2006-01-02 15:04:05"), item.FileName, item.From, item.To, item.Count)
			}
			return nil
		},
	}
}
