package commands

import (
	"fmt"
	"path/filepath"

	"github.com/fivetwenty-io/rdm-client/internal/constants"
	"github.com/fivetwenty-io/rdm-client/pkg/rdm"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

// NewDraftsCommand creates the drafts command group.
func NewDraftsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "drafts",
		Aliases: []string{"draft"},
		Short:   "Manage drafts",
		Long:    "Update, upload files to, publish and discard draft records",
	}

	cmd.AddCommand(newDraftsGetCommand())
	cmd.AddCommand(newDraftsUpdateCommand())
	cmd.AddCommand(newDraftsPublishCommand())
	cmd.AddCommand(newDraftsDeleteCommand())
	cmd.AddCommand(newDraftsFilesCommand())
	cmd.AddCommand(newDraftsUploadCommand())
	cmd.AddCommand(newDraftsDownloadCommand())
	cmd.AddCommand(newDraftsDeleteFileCommand())
	cmd.AddCommand(newDraftsImportFilesCommand())

	return cmd
}

func newDraftsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get DRAFT_ID",
		Short: "Get draft details",
		Long:  "Display a draft record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			draft, err := client.Records().Record(args[0]).Draft().Get(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get draft: %w", err)
			}

			return renderMetadata(cmd, draft.Data(), recordProperties)
		},
	}
}

func newDraftsUpdateCommand() *cobra.Command {
	var (
		file  string
		title string
	)

	cmd := &cobra.Command{
		Use:   "update DRAFT_ID",
		Short: "Update a draft",
		Long: `Update a draft record.

The draft is fetched first. Top-level keys read from --file replace the
ones of the draft and --title replaces the title.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" && title == "" {
				return fmt.Errorf("%w: --file or --title", constants.ErrFieldRequired)
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			draft, err := client.Records().Record(args[0]).Draft().Get(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get draft: %w", err)
			}

			if file != "" {
				fields, err := readMetadataFile(file)
				if err != nil {
					return err
				}

				for key, value := range fields {
					draft.Data().Set(key, value)
				}
			}

			if title != "" {
				metadata, _ := draft.Data().Get("metadata")

				values, ok := metadata.(map[string]interface{})
				if !ok {
					values = map[string]interface{}{}
				}

				values["title"] = title
				draft.Data().Set("metadata", values)
			}

			draft, err = draft.Update(cmd.Context(), nil)
			if err != nil {
				return fmt.Errorf("failed to update draft: %w", err)
			}

			return renderMetadata(cmd, draft.Data(), recordProperties)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON or YAML file with fields to replace")
	cmd.Flags().StringVar(&title, "title", "", "new title")

	return cmd
}

func newDraftsPublishCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publish DRAFT_ID",
		Short: "Publish a draft",
		Long:  "Publish a draft. All of its files must be committed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			record, err := client.Records().Record(args[0]).Draft().Publish(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to publish draft: %w", err)
			}

			return renderMetadata(cmd, record.Data(), recordProperties)
		},
	}
}

func newDraftsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete DRAFT_ID",
		Short: "Discard a draft",
		Long:  "Delete a draft. The published record, if any, is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			err = client.Records().Record(args[0]).Draft().Delete(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to delete draft: %w", err)
			}

			printSuccess(cmd, "Deleted draft %s", args[0])

			return nil
		},
	}
}

func newDraftsFilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "files DRAFT_ID",
		Short: "List draft files",
		Long:  "List the files of a draft with their upload status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			files, err := client.Records().Record(args[0]).Draft().Files().Get(cmd.Context())
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

func newDraftsUploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload DRAFT_ID FILE...",
		Short: "Upload files to a draft",
		Long: `Upload local files to a draft.

All files are registered first, then each one is uploaded and committed.
A failing file does not stop the others; every failure is reported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args[1:]
			if len(paths) == 0 {
				return constants.ErrNoFilesGiven
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(paths))
			for _, path := range paths {
				keys = append(keys, filepath.Base(path))
			}

			files := client.Records().Record(args[0]).Draft().Files()

			_, err = files.Create(cmd.Context(), rdm.NewFileEntries(keys...))
			if err != nil {
				return fmt.Errorf("failed to register files: %w", err)
			}

			var result *multierror.Error

			for i, path := range paths {
				err := uploadFile(cmd, files.File(keys[i]), path)
				if err != nil {
					result = multierror.Append(result, fmt.Errorf("%s: %w", keys[i], err))

					continue
				}

				printSuccess(cmd, "Uploaded %s", keys[i])
			}

			return result.ErrorOrNil()
		},
	}
}

func uploadFile(cmd *cobra.Command, file *rdm.DraftFile, path string) error {
	content, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = content.Close() }()

	_, err = file.SetContents(cmd.Context(), content)
	if err != nil {
		return fmt.Errorf("failed to upload content: %w", err)
	}

	_, err = file.Commit(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

func newDraftsDownloadCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download DRAFT_ID FILENAME",
		Short: "Download a draft file",
		Long:  "Download the content of a committed draft file. Use --output-file - to write to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			content, err := client.Records().Record(args[0]).Draft().Files().File(args[1]).Download(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to download %s: %w", args[1], err)
			}

			return writeDownload(cmd, content, args[1], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output-file", "o", "", "destination path (default: FILENAME in the current directory)")

	return cmd
}

func newDraftsDeleteFileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-file DRAFT_ID FILENAME",
		Short: "Remove a file from a draft",
		Long:  "Remove a file and its content from a draft",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			err = client.Records().Record(args[0]).Draft().Files().File(args[1]).Delete(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", args[1], err)
			}

			printSuccess(cmd, "Deleted %s", args[1])

			return nil
		},
	}
}

func newDraftsImportFilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import-files DRAFT_ID",
		Short: "Import files from the previous version",
		Long:  "Link the files of the previous published version into a new-version draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			files, err := client.Records().Record(args[0]).Draft().ImportFiles(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to import files: %w", err)
			}

			list, err := files.Data().List()
			if err != nil {
				return err
			}

			if len(list.Hits) == 0 {
				printWarning(cmd, "No files were imported")
			}

			view, err := fileRows(list.Hits)
			if err != nil {
				return err
			}

			return render(cmd, files.Data().Fields(), view)
		},
	}
}
