package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/fivetwenty-io/rdm-client/cmd/rdm/commands"
	"github.com/fivetwenty-io/rdm-client/internal/rdmtest"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const testToken = "cli-token"

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// cli runs commands against a fake server with an in-memory filesystem.
// Commands share viper's global state, so tests using it must not run in
// parallel.
type cli struct {
	t      *testing.T
	server *rdmtest.Server
	fs     afero.Fs
	stderr bytes.Buffer
}

func newCLI(t *testing.T, opts ...rdmtest.Option) *cli {
	t.Helper()

	server := rdmtest.NewServer(append([]rdmtest.Option{rdmtest.WithToken(testToken)}, opts...)...)
	t.Cleanup(server.Close)

	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("api", server.BaseURL())
	viper.Set("token", testToken)
	viper.Set("output", "json")
	viper.Set("no-color", true)

	memFs := afero.NewMemMapFs()
	commands.SetFilesystem(memFs)
	t.Cleanup(func() { commands.SetFilesystem(afero.NewOsFs()) })

	return &cli{t: t, server: server, fs: memFs}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{Use: "rdm", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(commands.NewVersionCommand("1.2.3", "abc123", "2024-05-01"))
	root.AddCommand(commands.NewLoginCommand())
	root.AddCommand(commands.NewLogoutCommand())
	root.AddCommand(commands.NewConfigCommand())
	root.AddCommand(commands.NewRecordsCommand())
	root.AddCommand(commands.NewDraftsCommand())
	root.AddCommand(commands.NewCommunitiesCommand())

	return root
}

// run executes args and returns stdout.
func (c *cli) run(args ...string) (string, error) {
	return c.runWithInput("", args...)
}

func (c *cli) runWithInput(input string, args ...string) (string, error) {
	root := rootCommand()

	var stdout bytes.Buffer

	c.stderr.Reset()
	root.SetOut(&stdout)
	root.SetErr(&c.stderr)
	root.SetIn(bytes.NewBufferString(input))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())

	return stdout.String(), err
}

// object runs args and decodes the JSON object they print.
func (c *cli) object(args ...string) map[string]interface{} {
	c.t.Helper()

	out, err := c.run(args...)
	require.NoError(c.t, err, c.stderr.String())

	var result map[string]interface{}
	require.NoError(c.t, json.Unmarshal([]byte(out), &result), out)

	return result
}

func (c *cli) writeFile(path, content string) {
	c.t.Helper()

	require.NoError(c.t, afero.WriteFile(c.fs, path, []byte(content), 0o600))
}
