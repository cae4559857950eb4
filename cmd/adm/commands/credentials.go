package commands

import (
	"fmt"
	"os"
	"strings"

	"borneo/internal/models"
	"borneo/internal/version"
	contextutils "borneo/internal/utils"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// CredentialsCommands returns the API key commands
func CredentialsCommands(env *Env) *cobra.Command {
	credCmd := &cobra.Command{
		Use:   "credentials",
		Short: "Provider API key commands",
		Long: `Provider API key commands.

Available commands:
  set   - Store an API key, prompting for it without echo
  list  - List stored keys, masked`,
	}

	credCmd.AddCommand(credentialsSetCmd(env))
	credCmd.AddCommand(credentialsListCmd(env))

	return credCmd
}

// readSecret prompts on stderr and reads a line without echo
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read input: %v", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func credentialsSetCmd(env *Env) *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store an API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			key, err := readSecret(fmt.Sprintf("Enter %s API key: ", service))
			if err != nil {
				return err
			}

			c, err := env.Container(ctx)
			if err != nil {
				return err
			}
			creds, err := c.GetCredentialsService()
			if err != nil {
				return err
			}
			if err := creds.Set(ctx, service, key); err != nil {
				return err
			}
			fmt.Printf("Stored %s API key\n", service)
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", models.CredentialGemini,
		"Service the key belongs to ("+strings.Join(models.CredentialServices, ", ")+")")
	return cmd
}

func credentialsListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored keys, masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := env.Container(ctx)
			if err != nil {
				return err
			}
			creds, err := c.GetCredentialsService()
			if err != nil {
				return err
			}

			items, err := creds.List(ctx)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No stored keys")
				return nil
			}
			for _, item := range items {
				fmt.Printf("%-10s %-12s %s\n", item.Service, item.Key, item.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

// HashPasswordCommand returns the command printing a bcrypt hash for server.admin_password_hash
func HashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for the admin password",
		RunE: func(_ *cobra.Command, _ []string) error {
			password, err := readSecret("Enter password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return contextutils.Newf(contextutils.ErrMissingRequired, "password cannot be empty")
			}
			confirm, err := readSecret("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return contextutils.Newf(contextutils.ErrInvalidInput, "passwords do not match")
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to hash password: %v", err)
			}
			fmt.Println(string(hash))
			return nil
		},
	}
}

// VersionCommand prints the build metadata
func VersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			info := version.Info("borneo-admin")
			fmt.Printf("%s %s (commit %s, built %s)\n", info["service"], info["version"], info["commit"], info["buildTime"])
		},
	}
}
