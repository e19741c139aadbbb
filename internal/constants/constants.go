package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600

	// DownloadFilePerm is the permission for downloaded files.
	DownloadFilePerm = 0640
)

// Configuration locations.
const (
	// ConfigDirName is the directory under the user's home holding the CLI config.
	ConfigDirName = ".rdm"

	// ConfigFileName is the CLI config file name without extension.
	ConfigFileName = "config"

	// ConfigFileType is the CLI config file format.
	ConfigFileType = "yml"

	// EnvPrefix prefixes environment variables read by the CLI.
	EnvPrefix = "RDM"

	// DevModeEnv enables development-only settings such as SkipTLSVerify.
	DevModeEnv = "RDM_DEV_MODE"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// UploadHTTPTimeout is used by the CLI for file transfers.
	UploadHTTPTimeout = 10 * time.Minute
)

// Retry settings. Retries only ever apply to connection failures.
const (
	// DefaultRetryWaitMin is the minimum wait between retries.
	DefaultRetryWaitMin = 500 * time.Millisecond

	// DefaultRetryWaitMax is the maximum wait between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// CLIRetryMax is the number of connection retries used by the CLI.
	CLIRetryMax = 2
)

// Pagination and display limits.
const (
	// DefaultPageSize is the default number of items per page.
	DefaultPageSize = 10

	// TitleDisplayLength is the length for displaying titles in tables.
	TitleDisplayLength = 60
)

// Format constants.
const (
	// FormatTable for table output format.
	FormatTable = "table"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"
)
