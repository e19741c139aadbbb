package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/rdm-client/internal/constants"
	"github.com/fivetwenty-io/rdm-client/pkg/rdm"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var recordProperties = [][2]string{
	{"ID", "id"},
	{"Title", "metadata.title"},
	{"Resource Type", "metadata.resource_type.id"},
	{"Publication Date", "metadata.publication_date"},
	{"Status", "status"},
	{"Version", "versions.index"},
	{"DOI", "pids.doi.identifier"},
	{"Created", "created"},
	{"Updated", "updated"},
}

// NewRecordsCommand creates the records command group.
func NewRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record", "rec"},
		Short:   "Manage records",
		Long:    "Search, create and version published InvenioRDM records",
	}

	cmd.AddCommand(newRecordsSearchCommand())
	cmd.AddCommand(newRecordsGetCommand())
	cmd.AddCommand(newRecordsCreateCommand())
	cmd.AddCommand(newRecordsEditCommand())
	cmd.AddCommand(newRecordsNewVersionCommand())
	cmd.AddCommand(newRecordsLatestCommand())
	cmd.AddCommand(newRecordsVersionsCommand())
	cmd.AddCommand(newRecordsFilesCommand())
	cmd.AddCommand(newRecordsDownloadCommand())

	return cmd
}

func newRecordsSearchCommand() *cobra.Command {
	var (
		params  rdm.SearchParams
		filters []string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search records",
		Long:  "Search published records, one page at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			page, err := client.Records().Search(cmd.Context(), applyFilters(params, filters))
			if err != nil {
				return fmt.Errorf("failed to search records: %w", err)
			}

			view, err := recordRows(page.Hits())
			if err != nil {
				return err
			}

			return renderPage(cmd, page, params.Page, view)
		},
	}

	addSearchFlags(cmd, &params, &filters)
	cmd.Flags().BoolVar(&params.AllVersions, "all-versions", false, "include every version of each record")

	return cmd
}

func newRecordsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get RECORD_ID",
		Short: "Get record details",
		Long:  "Display a published record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			record, err := client.Records().Record(args[0]).Get(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get record: %w", err)
			}

			return renderMetadata(cmd, record.Data(), recordProperties)
		},
	}
}

// draftOptions are the flags describing a new draft's metadata.
type draftOptions struct {
	file            string
	title           string
	resourceType    string
	publicationDate string
	creators        []string
}

func (o *draftOptions) fields() (rdm.Fields, error) {
	if o.file != "" {
		return readMetadataFile(o.file)
	}

	if o.title == "" {
		return nil, fmt.Errorf("%w: --title or --file", constants.ErrFieldRequired)
	}

	publicationDate := o.publicationDate
	if publicationDate == "" {
		publicationDate = time.Now().Format(time.DateOnly)
	}

	metadata := map[string]interface{}{
		"title":            o.title,
		"resource_type":    map[string]interface{}{"id": o.resourceType},
		"publication_date": publicationDate,
	}

	if len(o.creators) > 0 {
		creators := make([]interface{}, 0, len(o.creators))
		for _, name := range o.creators {
			creators = append(creators, creator(name))
		}

		metadata["creators"] = creators
	}

	return rdm.Fields{
		"access":   map[string]interface{}{"record": "public", "files": "public"},
		"files":    map[string]interface{}{"enabled": true},
		"metadata": metadata,
	}, nil
}

// creator builds a personal creator from "Family, Given".
func creator(name string) map[string]interface{} {
	person := map[string]interface{}{"type": "personal"}

	family, given, found := strings.Cut(name, ",")
	if found {
		person["family_name"] = strings.TrimSpace(family)
		person["given_name"] = strings.TrimSpace(given)
	} else {
		person["family_name"] = strings.TrimSpace(name)
	}

	return map[string]interface{}{"person_or_org": person}
}

func newRecordsCreateCommand() *cobra.Command {
	var options draftOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft",
		Long: `Create a new draft record.

The metadata is read from --file (JSON or YAML) or built from --title,
--resource-type, --publication-date and --creator.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := options.fields()
			if err != nil {
				return err
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			draft, err := client.Records().Create(cmd.Context(), rdm.NewMetadata(rdm.DraftMetadata, fields))
			if err != nil {
				return fmt.Errorf("failed to create draft: %w", err)
			}

			return renderMetadata(cmd, draft.Data(), recordProperties)
		},
	}

	cmd.Flags().StringVar(&options.file, "file", "", "JSON or YAML file with the draft")
	cmd.Flags().StringVar(&options.title, "title", "", "record title")
	cmd.Flags().StringVar(&options.resourceType, "resource-type", "dataset", "resource type id")
	cmd.Flags().StringVar(&options.publicationDate, "publication-date", "", "publication date (default today)")
	cmd.Flags().StringArrayVar(&options.creators, "creator", nil, `creator as "Family, Given" (repeatable)`)

	return cmd
}

func newRecordsEditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edit RECORD_ID",
		Short: "Edit a published record",
		Long:  "Open a draft of a published record for editing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			draft, err := client.Records().Record(args[0]).Edit(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to edit record: %w", err)
			}

			return renderMetadata(cmd, draft.Data(), recordProperties)
		},
	}
}

func newRecordsNewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "new-version RECORD_ID",
		Short: "Create a new version",
		Long:  "Create a draft for a new version of a published record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			draft, err := client.Records().Record(args[0]).NewVersion(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to create new version: %w", err)
			}

			return renderMetadata(cmd, draft.Data(), recordProperties)
		},
	}
}

func newRecordsLatestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "latest RECORD_ID",
		Short: "Get the latest version",
		Long:  "Display the latest published version of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			record, err := client.Records().Record(args[0]).Versions().Latest(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get latest version: %w", err)
			}

			return renderMetadata(cmd, record.Data(), recordProperties)
		},
	}
}

func newRecordsVersionsCommand() *cobra.Command {
	var (
		params  rdm.SearchParams
		filters []string
	)

	cmd := &cobra.Command{
		Use:   "versions RECORD_ID",
		Short: "List record versions",
		Long:  "List every published version of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			versions := client.Records().Record(args[0]).Versions()

			page, err := versions.Search(cmd.Context(), applyFilters(params, filters))
			if err != nil {
				return fmt.Errorf("failed to list versions: %w", err)
			}

			view, err := recordRows(page.Hits())
			if err != nil {
				return err
			}

			return renderPage(cmd, page, params.Page, view)
		},
	}

	addSearchFlags(cmd, &params, &filters)

	return cmd
}

// fileRows fills a table with one row per file entry.
func fileRows(entries []*rdm.Metadata) (*tableView, error) {
	view := &tableView{header: []string{"Key", "Status", "Size", "Checksum"}}

	for _, entry := range entries {
		var file fileSummary
		if err := entry.Decode(&file); err != nil {
			return nil, err
		}

		size := constants.NotAvailable
		if file.Size != nil {
			size = strconv.FormatInt(*file.Size, 10)
		}

		view.add(orNA(file.Key), orNA(file.Status), size, orNA(file.Checksum))
	}

	return view, nil
}

func newRecordsFilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "files RECORD_ID",
		Short: "List record files",
		Long:  "List the files of a published record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			files, err := client.Records().Record(args[0]).Files().Get(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list files: %w", err)
			}

			list, err := files.Data().List()
			if err != nil {
				return err
			}

			view, err := fileRows(list.Hits)
			if err != nil {
				return err
			}

			return render(cmd, files.Data().Fields(), view)
		},
	}
}

func newRecordsDownloadCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download RECORD_ID FILENAME",
		Short: "Download a record file",
		Long:  "Download the content of a published file. Use --output-file - to write to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			content, err := client.Records().Record(args[0]).Files().File(args[1]).Download(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to download %s: %w", args[1], err)
			}

			return writeDownload(cmd, content, args[1], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output-file", "o", "", "destination path (default: FILENAME in the current directory)")

	return cmd
}

// writeDownload stores downloaded content at output, or prints it for "-".
func writeDownload(cmd *cobra.Command, content *rdm.Metadata, filename, output string) error {
	if output == "-" {
		_, err := io.Copy(cmd.OutOrStdout(), content.Reader())

		return err
	}

	if output == "" {
		output = filepath.Base(filename)
	}

	err := afero.WriteFile(fs, output, content.Bytes(), constants.DownloadFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	printSuccess(cmd, "Downloaded %s (%d bytes) to %s", filename, len(content.Bytes()), output)

	return nil
}
