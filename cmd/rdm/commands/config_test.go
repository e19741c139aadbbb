package commands_test

import (
	"testing"

	"github.com/fivetwenty-io/rdm-client/internal/constants"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const configFile = "/home/test/.rdm/config.yml"

func readConfigFile(t *testing.T, c *cli) map[string]interface{} {
	t.Helper()

	data, err := afero.ReadFile(c.fs, configFile)
	require.NoError(t, err)

	var stored map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &stored))

	return stored
}

//nolint:paralleltest // Commands share viper's global state
func TestConfigCommands(t *testing.T) {
	c := newCLI(t)
	viper.SetConfigFile(configFile)

	out, err := c.run("config", "set", "api", "https://zenodo.org/api/")
	require.NoError(t, err)
	assert.Contains(t, out, "Set api")
	assert.Equal(t, "https://zenodo.org/api", viper.GetString("api"))

	_, err = c.run("config", "set", "no-color", "yes")
	require.Error(t, err)

	_, err = c.run("config", "set", "no-color", "true")
	require.NoError(t, err)

	stored := readConfigFile(t, c)
	assert.Equal(t, "https://zenodo.org/api", stored["api"])
	assert.Equal(t, testToken, stored["token"])
	assert.Equal(t, true, stored["no-color"])

	info, err := c.fs.Stat(configFile)
	require.NoError(t, err)
	assert.EqualValues(t, constants.ConfigFilePerm, info.Mode().Perm())

	_, err = c.run("config", "set", "output", "xml")
	require.ErrorIs(t, err, constants.ErrInvalidOutputFormat)

	_, err = c.run("config", "set", "colour", "on")
	require.ErrorIs(t, err, constants.ErrUnknownConfigKey)

	shown := c.object("config", "show")
	assert.Equal(t, constants.MaskedSecret, shown["token"])
	assert.Equal(t, "https://zenodo.org/api", shown["api"])
}

//nolint:paralleltest // Commands share viper's global state
func TestLoginCommand(t *testing.T) {
	c := newCLI(t)
	viper.SetConfigFile(configFile)
	viper.Set("token", "")

	c.server.SeedRecord("Visible")

	out, err := c.runWithInput("wrong-token\n", "login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to verify token")
	assert.Contains(t, out, "Access token: ")

	exists, err := afero.Exists(c.fs, configFile)
	require.NoError(t, err)
	assert.False(t, exists)

	viper.Set("token", "")

	out, err = c.runWithInput(testToken+"\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in")
	assert.Contains(t, out, "1 records visible")
	assert.Equal(t, "Bearer "+testToken, c.server.LastRequest().Header.Get("Authorization"))
	assert.Equal(t, "1", c.server.LastRequest().Query.Get("size"))

	stored := readConfigFile(t, c)
	assert.Equal(t, testToken, stored["token"])
	assert.Equal(t, c.server.BaseURL(), stored["api"])

	out, err = c.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	stored = readConfigFile(t, c)
	assert.NotContains(t, stored, "token")
}

//nolint:paralleltest // Commands share viper's global state
func TestLoginCommand_EmptyToken(t *testing.T) {
	c := newCLI(t)
	viper.Set("token", "")

	_, err := c.runWithInput("\n", "login")
	require.ErrorIs(t, err, constants.ErrEmptyToken)
	assert.Zero(t, c.server.RequestCount())
}

//nolint:paralleltest // Commands share viper's global state
func TestVersionCommand(t *testing.T) {
	c := newCLI(t)

	info := c.object("version")
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "abc123", info["commit"])
	assert.Equal(t, "2024-05-01", info["built"])
	assert.NotEmpty(t, info["library"])

	viper.Set("output", "yaml")

	out, err := c.run("version")
	require.NoError(t, err)
	assert.Contains(t, out, "version: 1.2.3")
}
