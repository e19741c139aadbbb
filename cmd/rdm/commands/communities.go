package commands

import (
	"fmt"

	"github.com/fivetwenty-io/rdm-client/internal/constants"
	"github.com/fivetwenty-io/rdm-client/pkg/rdm"
	"github.com/spf13/cobra"
)

var communityProperties = [][2]string{
	{"ID", "id"},
	{"Slug", "slug"},
	{"Title", "metadata.title"},
	{"Type", "metadata.type.id"},
	{"Visibility", "access.visibility"},
	{"Created", "created"},
	{"Updated", "updated"},
}

// NewCommunitiesCommand creates the communities command group.
func NewCommunitiesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "communities",
		Aliases: []string{"community", "comm"},
		Short:   "Manage communities",
		Long:    "Search, create and curate InvenioRDM communities",
	}

	cmd.AddCommand(newCommunitiesSearchCommand())
	cmd.AddCommand(newCommunitiesGetCommand())
	cmd.AddCommand(newCommunitiesCreateCommand())
	cmd.AddCommand(newCommunitiesUpdateCommand())
	cmd.AddCommand(newCommunitiesDeleteCommand())
	cmd.AddCommand(newCommunitiesRecordsCommand())
	cmd.AddCommand(newCommunitiesAddRecordsCommand())

	return cmd
}

func communityRows(hits []*rdm.Metadata) (*tableView, error) {
	view := &tableView{header: []string{"ID", "Slug", "Title", "Visibility", "Created"}}

	for _, hit := range hits {
		var community communitySummary
		if err := hit.Decode(&community); err != nil {
			return nil, err
		}

		view.add(
			orNA(community.ID),
			orNA(community.Slug),
			truncate(orNA(community.Metadata.Title), constants.TitleDisplayLength),
			orNA(community.Access.Visibility),
			orNA(community.Created),
		)
	}

	return view, nil
}

func newCommunitiesSearchCommand() *cobra.Command {
	var (
		params  rdm.SearchParams
		filters []string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search communities",
		Long:  "Search communities, one page at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			page, err := client.Communities().Search(cmd.Context(), applyFilters(params, filters))
			if err != nil {
				return fmt.Errorf("failed to search communities: %w", err)
			}

			view, err := communityRows(page.Hits())
			if err != nil {
				return err
			}

			return renderPage(cmd, page, params.Page, view)
		},
	}

	addSearchFlags(cmd, &params, &filters)

	return cmd
}

func newCommunitiesGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get COMMUNITY_ID_OR_SLUG",
		Short: "Get community details",
		Long:  "Display a community by id or slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			community, err := client.Communities().Community(args[0]).Get(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get community: %w", err)
			}

			return renderMetadata(cmd, community.Data(), communityProperties)
		},
	}
}

func newCommunitiesCreateCommand() *cobra.Command {
	var (
		file       string
		slug       string
		title      string
		visibility string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a community",
		Long: `Create a community.

The community is read from --file (JSON or YAML) or built from --slug,
--title and --visibility.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var fields rdm.Fields

			switch {
			case file != "":
				var err error

				fields, err = readMetadataFile(file)
				if err != nil {
					return err
				}
			case slug == "" || title == "":
				return fmt.Errorf("%w: --slug and --title, or --file", constants.ErrFieldRequired)
			default:
				fields = rdm.Fields{
					"slug":     slug,
					"metadata": map[string]interface{}{"title": title},
					"access":   map[string]interface{}{"visibility": visibility},
				}
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			community, err := client.Communities().Create(cmd.Context(), rdm.NewMetadata(rdm.CommunityMetadata, fields))
			if err != nil {
				return fmt.Errorf("failed to create community: %w", err)
			}

			return renderMetadata(cmd, community.Data(), communityProperties)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON or YAML file with the community")
	cmd.Flags().StringVar(&slug, "slug", "", "URL identifier of the community")
	cmd.Flags().StringVar(&title, "title", "", "community title")
	cmd.Flags().StringVar(&visibility, "visibility", "public", "visibility (public or restricted)")

	return cmd
}

func newCommunitiesUpdateCommand() *cobra.Command {
	var (
		file  string
		title string
	)

	cmd := &cobra.Command{
		Use:   "update COMMUNITY_ID_OR_SLUG",
		Short: "Update a community",
		Long: `Update a community.

The community is fetched first. Top-level keys read from --file replace
the ones of the community and --title replaces the title.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" && title == "" {
				return fmt.Errorf("%w: --file or --title", constants.ErrFieldRequired)
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			community, err := client.Communities().Community(args[0]).Get(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get community: %w", err)
			}

			// Address it by id from here on, in case args[0] was a slug.
			bound := &rdm.Community{Resource: rdm.NewResource(client, community.Template(), nil)}
			bound.SetData(community.Data())

			if file != "" {
				fields, err := readMetadataFile(file)
				if err != nil {
					return err
				}

				for key, value := range fields {
					bound.Data().Set(key, value)
				}
			}

			if title != "" {
				metadata, _ := bound.Data().Get("metadata")

				values, ok := metadata.(map[string]interface{})
				if !ok {
					values = map[string]interface{}{}
				}

				values["title"] = title
				bound.Data().Set("metadata", values)
			}

			updated, err := bound.Update(cmd.Context(), nil)
			if err != nil {
				return fmt.Errorf("failed to update community: %w", err)
			}

			return renderMetadata(cmd, updated.Data(), communityProperties)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON or YAML file with fields to replace")
	cmd.Flags().StringVar(&title, "title", "", "new title")

	return cmd
}

func newCommunitiesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete COMMUNITY_ID_OR_SLUG",
		Short: "Delete a community",
		Long:  "Delete a community. Its records stay published",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			err = client.Communities().Community(args[0]).Delete(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to delete community: %w", err)
			}

			printSuccess(cmd, "Deleted community %s", args[0])

			return nil
		},
	}
}

func newCommunitiesRecordsCommand() *cobra.Command {
	var (
		params  rdm.SearchParams
		filters []string
	)

	cmd := &cobra.Command{
		Use:   "records COMMUNITY_ID",
		Short: "List community records",
		Long:  "Search the records included in a community",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			records := client.Communities().Community(args[0]).Records()

			page, err := records.Search(cmd.Context(), applyFilters(params, filters))
			if err != nil {
				return fmt.Errorf("failed to search community records: %w", err)
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

func newCommunitiesAddRecordsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add-records COMMUNITY_ID RECORD_ID...",
		Short: "Add records to a community",
		Long:  "Include published records in a community",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			records, err := client.Communities().Community(args[0]).Records().Add(cmd.Context(), args[1:])
			if err != nil {
				return fmt.Errorf("failed to add records: %w", err)
			}

			view := &tableView{header: []string{"Record", "Result"}}

			processed, _ := records.Data().Get("processed")
			for _, entry := range asList(processed) {
				view.add(lookupString(rdm.NewMetadata(rdm.CommunityRecordMetadata, entry), "record_id"), "added")
			}

			errorsReported, _ := records.Data().Get("errors")
			for _, entry := range asList(errorsReported) {
				report := rdm.NewMetadata(rdm.CommunityRecordMetadata, entry)
				view.add(lookupString(report, "record_id"), lookupString(report, "message"))
			}

			return render(cmd, records.Data().Fields(), view)
		},
	}
}

// asList keeps the object entries of a JSON array.
func asList(value interface{}) []rdm.Fields {
	items, _ := value.([]interface{})

	fields := make([]rdm.Fields, 0, len(items))
	for _, item := range items {
		if object, ok := item.(map[string]interface{}); ok {
			fields = append(fields, object)
		}
	}

	return fields
}
