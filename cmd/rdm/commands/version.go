package commands

import (
	"github.com/fivetwenty-io/rdm-client/pkg/rdm"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the InvenioRDM CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			type VersionInfo struct {
				Version string `json:"version" yaml:"version"`
				Commit  string `json:"commit"  yaml:"commit"`
				Built   string `json:"built"   yaml:"built"`
				Library string `json:"library" yaml:"library"`
			}

			versionInfo := VersionInfo{
				Version: version,
				Commit:  commit,
				Built:   date,
				Library: rdm.Version,
			}

			view := &tableView{header: []string{"Property", "Value"}}
			view.add("Version", version)
			view.add("Commit", commit)
			view.add("Built", date)
			view.add("Library", rdm.Version)

			return render(cmd, versionInfo, view)
		},
	}
}
