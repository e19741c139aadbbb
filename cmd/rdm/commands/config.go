package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fivetwenty-io/rdm-client/internal/constants"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration.
type Config struct {
	API               string `json:"api,omitempty"       yaml:"api,omitempty"`
	Token             string `json:"token,omitempty"     yaml:"token,omitempty"`
	Output            string `json:"output"              yaml:"output"`
	NoColor           bool   `json:"no-color"            yaml:"no-color"`
	SkipSSLValidation bool   `json:"skip-ssl-validation" yaml:"skip-ssl-validation"`
}

// configKeys are the keys accepted by "config set". They match the global
// flag names.
var configKeys = []string{"api", "no-color", "output", "skip-ssl-validation", "token"}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the InvenioRDM CLI configuration stored in ~/.rdm/config.yml",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with the token masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if config.Token != "" {
				config.Token = constants.MaskedSecret
			}

			view := &tableView{header: []string{"Key", "Value"}}
			view.add("api", valueOrNA(config.API))
			view.add("token", valueOrNA(config.Token))
			view.add("output", valueOrNA(config.Output))
			view.add("no-color", cast.ToString(config.NoColor))
			view.add("skip-ssl-validation", cast.ToString(config.SkipSSLValidation))

			return render(cmd, config, view)
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Valid keys: " + strings.Join(configKeys, ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			err := setConfigValue(config, args[0], args[1])
			if err != nil {
				return err
			}

			err = saveConfig(config)
			if err != nil {
				return err
			}

			printSuccess(cmd, "Set %s", args[0])

			return nil
		},
	}
}

func setConfigValue(config *Config, key, value string) error {
	switch key {
	case "api":
		config.API = strings.TrimSuffix(value, "/")
		viper.Set("api", config.API)
	case "token":
		config.Token = value
		viper.Set("token", value)
	case "output":
		switch value {
		case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
			config.Output = value
			viper.Set("output", value)
		default:
			return fmt.Errorf("%w: %q", constants.ErrInvalidOutputFormat, value)
		}
	case "no-color":
		enabled, err := cast.ToBoolE(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}

		config.NoColor = enabled
		viper.Set("no-color", enabled)
	case "skip-ssl-validation":
		enabled, err := cast.ToBoolE(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}

		config.SkipSSLValidation = enabled
		viper.Set("skip-ssl-validation", enabled)
	default:
		return fmt.Errorf("%w: %s (valid keys: %s)", constants.ErrUnknownConfigKey, key, strings.Join(configKeys, ", "))
	}

	return nil
}

// loadConfig loads configuration from viper.
func loadConfig() *Config {
	return &Config{
		API:               viper.GetString("api"),
		Token:             viper.GetString("token"),
		Output:            viper.GetString("output"),
		NoColor:           viper.GetBool("no-color"),
		SkipSSLValidation: viper.GetBool("skip-ssl-validation"),
	}
}

// configFilePath returns the file the configuration is written to.
func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	configDir, err := homeConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, constants.ConfigFileName+"."+constants.ConfigFileType), nil
}

// saveConfig writes config as YAML.
func saveConfig(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	err = fs.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = afero.WriteFile(fs, configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func valueOrNA(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}
