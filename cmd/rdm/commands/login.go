package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fivetwenty-io/rdm-client/internal/constants"
	"github.com/fivetwenty-io/rdm-client/pkg/rdm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to an InvenioRDM instance",
		Long: `Store a personal access token for an InvenioRDM instance.

The token is created under "Applications" in the InvenioRDM user settings.
It is checked with a one-hit records search before it is saved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())

			apiEndpoint := viper.GetString("api")
			if apiEndpoint == "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), "API endpoint: ")
				line, _ := reader.ReadString('\n')
				apiEndpoint = strings.TrimSpace(line)
			}

			if apiEndpoint == "" {
				return constants.ErrNoAPIConfigured
			}

			token := viper.GetString("token")
			if token == "" {
				var err error

				token, err = promptToken(cmd, reader)
				if err != nil {
					return err
				}
			}

			if token == "" {
				return constants.ErrEmptyToken
			}

			viper.Set("api", strings.TrimSuffix(apiEndpoint, "/"))
			viper.Set("token", token)

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			page, err := client.Records().Search(cmd.Context(), rdm.SearchParams{Size: 1})
			if err != nil {
				return fmt.Errorf("failed to verify token: %w", err)
			}

			err = saveConfig(loadConfig())
			if err != nil {
				return err
			}

			printSuccess(cmd, "Logged in to %s (%d records visible)", client.BaseURL(), page.Total())

			return nil
		},
	}
}

// promptToken reads the token without echo from a terminal, or as a
// plain line from any other input.
func promptToken(cmd *cobra.Command, reader *bufio.Reader) (string, error) {
	_, _ = fmt.Fprint(cmd.OutOrStdout(), "Access token: ")

	if cmd.InOrStdin() == os.Stdin && term.IsTerminal(int(os.Stdin.Fd())) {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout())

		return strings.TrimSpace(string(secret)), nil
	}

	line, _ := reader.ReadString('\n')

	return strings.TrimSpace(line), nil
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored access token",
		Long:  "Remove the stored access token from the CLI configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.Set("token", "")

			err := saveConfig(loadConfig())
			if err != nil {
				return err
			}

			printSuccess(cmd, "Logged out")

			return nil
		},
	}
}
