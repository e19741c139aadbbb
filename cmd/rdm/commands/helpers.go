package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/fivetwenty-io/rdm-client/internal/constants"
	"github.com/fivetwenty-io/rdm-client/pkg/rdm"
	"github.com/fivetwenty-io/rdm-client/pkg/rdmclient"
	"github.com/hashicorp/go-hclog"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// fs is the filesystem used for metadata files, uploads, downloads and the
// config file. Tests swap it for an in-memory one.
var fs = afero.NewOsFs()

// SetFilesystem replaces the filesystem used by all commands.
func SetFilesystem(filesystem afero.Fs) {
	fs = filesystem
}

// createClient builds an API client from the configured endpoint and token.
func createClient(cmd *cobra.Command) (*rdm.Client, error) {
	api := viper.GetString("api")
	if api == "" {
		return nil, constants.ErrNoAPIConfigured
	}

	config := &rdm.Config{
		BaseURL:       api,
		AccessToken:   viper.GetString("token"),
		HTTPTimeout:   constants.UploadHTTPTimeout,
		RetryMax:      constants.CLIRetryMax,
		RetryWaitMin:  constants.DefaultRetryWaitMin,
		RetryWaitMax:  constants.DefaultRetryWaitMax,
		SkipTLSVerify: viper.GetBool("skip-ssl-validation"),
		UserAgent:     "rdm-cli/" + rdm.Version,
	}

	if viper.GetBool("verbose") {
		colorOption := hclog.AutoColor
		if viper.GetBool("no-color") {
			colorOption = hclog.ColorOff
		}

		logger := rdmclient.NewHCLogger(hclog.New(&hclog.LoggerOptions{
			Name:   "rdm",
			Level:  hclog.Debug,
			Output: cmd.ErrOrStderr(),
			Color:  colorOption,
		}))

		chain := rdm.NewInterceptorChain()
		chain.AddRequestInterceptor(rdm.RequestIDInterceptor())
		chain.AddRequestInterceptor(rdm.LoggingInterceptor(logger))
		chain.AddResponseInterceptor(rdm.LoggingResponseInterceptor(logger))

		config.Logger = logger
		config.Debug = true
		config.Interceptors = chain
	}

	client, err := rdmclient.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// outputFormat returns the validated --output value.
func outputFormat() (string, error) {
	format := strings.ToLower(viper.GetString("output"))

	switch format {
	case "", constants.FormatTable:
		return constants.FormatTable, nil
	case constants.FormatJSON, constants.FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %q", constants.ErrInvalidOutputFormat, format)
	}
}

// tableView is the tabular rendering of a value printed by render.
type tableView struct {
	header []string
	rows   [][]string
}

func (v *tableView) add(row ...string) {
	v.rows = append(v.rows, row)
}

// render writes value as JSON or YAML, or view as a table.
func render(cmd *cobra.Command, value interface{}, view *tableView) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

		return encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(out)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(value)
	default:
		return renderTable(out, view)
	}
}

func renderTable(out io.Writer, view *tableView) error {
	table := tablewriter.NewWriter(out)

	header := make([]interface{}, len(view.header))
	for i, h := range view.header {
		header[i] = h
	}

	table.Header(header...)

	for _, row := range view.rows {
		cells := make([]interface{}, len(row))
		for i, cell := range row {
			cells[i] = cell
		}

		err := table.Append(cells...)
		if err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// renderMetadata prints a single resource as property/value pairs.
func renderMetadata(cmd *cobra.Command, m *rdm.Metadata, properties [][2]string) error {
	view := &tableView{header: []string{"Property", "Value"}}
	for _, property := range properties {
		view.add(property[0], lookupString(m, strings.Split(property[1], ".")...))
	}

	return render(cmd, m.Fields(), view)
}

// lookupString renders the value at path, or NotAvailable.
func lookupString(m *rdm.Metadata, path ...string) string {
	if m == nil {
		return constants.NotAvailable
	}

	value, err := m.Lookup(path...)
	if err != nil || value == nil {
		return constants.NotAvailable
	}

	switch v := value.(type) {
	case string:
		return v
	case map[string]interface{}, []interface{}:
		encoded, err := json.Marshal(v)
		if err != nil {
			return constants.NotAvailable
		}

		return string(encoded)
	default:
		return fmt.Sprint(v)
	}
}

func truncate(value string, length int) string {
	runes := []rune(value)
	if len(runes) <= length {
		return value
	}

	return string(runes[:length-3]) + "..."
}

// recordSummary is the part of a record shown in tables.
type recordSummary struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Created  string `json:"created"`
	Metadata struct {
		Title string `json:"title"`
	} `json:"metadata"`
	Versions struct {
		Index *int `json:"index"`
	} `json:"versions"`
}

// communitySummary is the part of a community shown in tables.
type communitySummary struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Created  string `json:"created"`
	Metadata struct {
		Title string `json:"title"`
	} `json:"metadata"`
	Access struct {
		Visibility string `json:"visibility"`
	} `json:"access"`
}

// fileSummary is the part of a file entry shown in tables.
type fileSummary struct {
	Key      string `json:"key"`
	Status   string `json:"status"`
	Size     *int64 `json:"size"`
	Checksum string `json:"checksum"`
}

func orNA(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}

// recordRows fills a table with one row per record-like hit.
func recordRows(hits []*rdm.Metadata) (*tableView, error) {
	view := &tableView{header: []string{"ID", "Title", "Status", "Version", "Created"}}

	for _, hit := range hits {
		var record recordSummary
		if err := hit.Decode(&record); err != nil {
			return nil, err
		}

		version := constants.NotAvailable
		if record.Versions.Index != nil {
			version = strconv.Itoa(*record.Versions.Index)
		}

		view.add(
			orNA(record.ID),
			truncate(orNA(record.Metadata.Title), constants.TitleDisplayLength),
			orNA(record.Status),
			version,
			orNA(record.Created),
		)
	}

	return view, nil
}

// searchResult is the JSON/YAML shape of a search page.
type searchResult struct {
	Total        int                      `json:"total"                  yaml:"total"`
	Page         int                      `json:"page"                   yaml:"page"`
	Hits         []map[string]interface{} `json:"hits"                   yaml:"hits"`
	Aggregations interface{}              `json:"aggregations,omitempty" yaml:"aggregations,omitempty"`
}

func renderPage[T any](cmd *cobra.Command, page *rdm.Pagination[T], number int, view *tableView) error {
	result := searchResult{
		Total:        page.Total(),
		Page:         number,
		Hits:         make([]map[string]interface{}, 0, page.Len()),
		Aggregations: page.Aggregations(),
	}

	for _, hit := range page.Hits() {
		result.Hits = append(result.Hits, hit.Fields())
	}

	err := render(cmd, result, view)
	if err != nil {
		return err
	}

	format, _ := outputFormat()
	if format == constants.FormatTable {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Page %d, showing %d of %d\n", number, page.Len(), page.Total())
	}

	return nil
}

// addSearchFlags registers the flags shared by all search commands.
func addSearchFlags(cmd *cobra.Command, params *rdm.SearchParams, filters *[]string) {
	cmd.Flags().StringVarP(&params.Query, "query", "q", "", "search query")
	cmd.Flags().IntVar(&params.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&params.Size, "size", constants.DefaultPageSize, "results per page")
	cmd.Flags().StringVar(&params.Sort, "sort", "", "sort order (e.g. newest, oldest, bestmatch, title)")
	cmd.Flags().StringArrayVarP(filters, "filter", "f", nil, "facet filter, e.g. resource_type:dataset (repeatable)")
}

func applyFilters(params rdm.SearchParams, filters []string) rdm.SearchParams {
	if len(filters) > 0 {
		params.Filters = map[string][]string{"f": filters}
	}

	return params
}

// readMetadataFile parses a JSON or YAML document into fields.
func readMetadataFile(path string) (rdm.Fields, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	fields := rdm.Fields{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &fields)
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		err = decoder.Decode(&fields)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return fields, nil
}

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// configureColor applies --no-color to every status printer.
func configureColor() {
	if viper.GetBool("no-color") {
		color.NoColor = true
	}
}

func printSuccess(cmd *cobra.Command, format string, args ...interface{}) {
	configureColor()
	_, _ = successColor.Fprintf(cmd.OutOrStdout(), "OK ")
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}

func printWarning(cmd *cobra.Command, format string, args ...interface{}) {
	configureColor()
	_, _ = warningColor.Fprintf(cmd.ErrOrStderr(), "WARN ")
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}

// PrintError reports a failed command on w.
func PrintError(w io.Writer, err error) {
	configureColor()
	_, _ = errorColor.Fprint(w, "Error: ")
	_, _ = fmt.Fprintln(w, err)
}

// homeConfigDir returns ~/.rdm.
func homeConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName), nil
}
