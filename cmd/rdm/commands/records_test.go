package commands_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/fivetwenty-io/rdm-client/internal/constants"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:paralleltest // Commands share viper's global state
func TestRecordsCommands_DepositWorkflow(t *testing.T) { //nolint:funlen
	c := newCLI(t)

	draft := c.object("records", "create",
		"--title", "Ocean temperatures",
		"--publication-date", "2024-05-01",
		"--creator", "Doe, Jane")

	draftID, ok := draft["id"].(string)
	require.True(t, ok)
	assert.Equal(t, "draft", draft["status"])

	metadata := draft["metadata"].(map[string]interface{})
	assert.Equal(t, "Ocean temperatures", metadata["title"])
	assert.Equal(t, map[string]interface{}{"id": "dataset"}, metadata["resource_type"])

	creators := metadata["creators"].([]interface{})
	require.Len(t, creators, 1)
	assert.Equal(t, map[string]interface{}{
		"person_or_org": map[string]interface{}{
			"type":        "personal",
			"family_name": "Doe",
			"given_name":  "Jane",
		},
	}, creators[0])

	c.writeFile("/data/readings.csv", "day,temp\n1,4.2\n")
	c.writeFile("/data/notes.txt", "calibrated")

	out, err := c.run("drafts", "upload", draftID, "/data/readings.csv", "/data/notes.txt")
	require.NoError(t, err, c.stderr.String())
	assert.Contains(t, out, "Uploaded readings.csv")
	assert.Contains(t, out, "Uploaded notes.txt")

	files := c.object("drafts", "files", draftID)
	entries := files["entries"].([]interface{})
	require.Len(t, entries, 2)

	for _, entry := range entries {
		assert.Equal(t, "completed", entry.(map[string]interface{})["status"])
	}

	updated := c.object("drafts", "update", draftID, "--title", "Ocean temperatures 2024")
	assert.Equal(t, "Ocean temperatures 2024", updated["metadata"].(map[string]interface{})["title"])

	record := c.object("drafts", "publish", draftID)
	assert.Equal(t, draftID, record["id"])
	assert.Equal(t, "published", record["status"])

	fetched := c.object("records", "get", draftID)
	assert.Equal(t, "Ocean temperatures 2024", fetched["metadata"].(map[string]interface{})["title"])

	out, err = c.run("records", "download", draftID, "notes.txt", "--output-file", "-")
	require.NoError(t, err)
	assert.Equal(t, "calibrated", out)

	out, err = c.run("records", "download", draftID, "readings.csv", "-o", "/out/readings.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "Downloaded readings.csv")

	content, err := afero.ReadFile(c.fs, "/out/readings.csv")
	require.NoError(t, err)
	assert.Equal(t, "day,temp\n1,4.2\n", string(content))

	recordFiles := c.object("records", "files", draftID)
	assert.Len(t, recordFiles["entries"], 2)
}

//nolint:paralleltest // Commands share viper's global state
func TestRecordsCommands_CreateFromFile(t *testing.T) {
	c := newCLI(t)

	c.writeFile("/meta/draft.yaml", `
metadata:
  title: From YAML
  resource_type:
    id: software
  publication_date: "2023-01-01"
`)
	c.writeFile("/meta/draft.json", `{"metadata": {"title": "From JSON", "resource_type": {"id": "image"}}}`)

	fromYAML := c.object("records", "create", "--file", "/meta/draft.yaml")
	assert.Equal(t, "From YAML", fromYAML["metadata"].(map[string]interface{})["title"])
	assert.Equal(t, "software", fromYAML["metadata"].(map[string]interface{})["resource_type"].(map[string]interface{})["id"])

	fromJSON := c.object("records", "create", "--file", "/meta/draft.json")
	assert.Equal(t, "From JSON", fromJSON["metadata"].(map[string]interface{})["title"])

	_, err := c.run("records", "create")
	require.ErrorIs(t, err, constants.ErrFieldRequired)

	_, err = c.run("records", "create", "--file", "/meta/missing.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.json")
}

//nolint:paralleltest // Commands share viper's global state
func TestRecordsCommands_SearchAndVersions(t *testing.T) {
	c := newCLI(t)

	first := c.server.SeedRecord("Glacier mass balance")
	c.server.SeedRecord("Sea level rise")

	page := c.object("records", "search", "--sort", "title")
	assert.InDelta(t, 2, page["total"], 0)
	assert.InDelta(t, 1, page["page"], 0)

	hits := page["hits"].([]interface{})
	require.Len(t, hits, 2)
	assert.Equal(t, first, hits[0].(map[string]interface{})["id"])

	req := c.server.LastRequest()
	assert.Equal(t, "title", req.Query.Get("sort"))
	assert.Equal(t, "10", req.Query.Get("size"))

	filtered := c.object("records", "search", "-q", "glacier", "-f", "resource_type:dataset")
	assert.InDelta(t, 1, filtered["total"], 0)
	assert.Equal(t, []string{"resource_type:dataset"}, c.server.LastRequest().Query["f"])

	draft := c.object("records", "new-version", first)
	newID := draft["id"].(string)
	assert.NotEqual(t, first, newID)

	c.object("drafts", "publish", newID)

	latest := c.object("records", "latest", first)
	assert.Equal(t, newID, latest["id"])

	versions := c.object("records", "versions", first)
	assert.InDelta(t, 2, versions["total"], 0)
	assert.Equal(t, "1", c.server.LastRequest().Query.Get("allversions"))

	edited := c.object("records", "edit", first)
	assert.Equal(t, first, edited["id"])
	assert.Equal(t, "draft", edited["status"])
}

//nolint:paralleltest // Commands share viper's global state
func TestRecordsCommands_TableOutput(t *testing.T) {
	c := newCLI(t)
	viper.Set("output", "table")

	recordID := c.server.SeedRecord(strings.Repeat("Long title ", 10))

	out, err := c.run("records", "search")
	require.NoError(t, err)
	assert.Contains(t, out, recordID)
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "Page 1, showing 1 of 1")

	out, err = c.run("records", "get", recordID)
	require.NoError(t, err)
	assert.Contains(t, out, "published")
	assert.Contains(t, out, constants.NotAvailable)

	c.server.SeedRecordFile(recordID, "data.csv", []byte("a,b\n"))

	out, err = c.run("records", "files", recordID)
	require.NoError(t, err)
	assert.Contains(t, out, "data.csv")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "md5:")

	c.server.SeedCommunity("alpine", "Alpine research")

	out, err = c.run("communities", "search")
	require.NoError(t, err)
	assert.Contains(t, out, "alpine")
	assert.Contains(t, out, "Alpine research")
	assert.Contains(t, out, "public")
}

//nolint:paralleltest // Commands share viper's global state
func TestRecordsCommands_Errors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("records", "get", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get record")
	assert.Contains(t, err.Error(), "HTTP 404")

	viper.Set("output", "xml")

	c.server.SeedRecord("Any")

	_, err = c.run("records", "search")
	require.ErrorIs(t, err, constants.ErrInvalidOutputFormat)

	viper.Set("api", "")

	_, err = c.run("records", "search")
	require.ErrorIs(t, err, constants.ErrNoAPIConfigured)
}

//nolint:paralleltest // Commands share viper's global state
func TestRecordsCommands_Verbose(t *testing.T) {
	c := newCLI(t)
	viper.Set("verbose", true)

	c.server.SeedRecord("Logged")

	_, err := c.run("records", "search")
	require.NoError(t, err)

	logs := c.stderr.String()
	assert.Contains(t, logs, "HTTP Request")
	assert.Contains(t, logs, "API Request")
	assert.NotEmpty(t, c.server.LastRequest().Header.Get("X-Request-Id"))
	assert.Contains(t, c.server.LastRequest().Header.Get("User-Agent"), "rdm-cli/")
}

//nolint:paralleltest // Commands share viper's global state
func TestDraftsCommands_UploadReportsEveryFailure(t *testing.T) {
	c := newCLI(t)

	draft := c.object("records", "create", "--title", "Partial upload")
	draftID := draft["id"].(string)

	c.writeFile("/data/present.txt", "here")

	out, err := c.run("drafts", "upload", draftID, "/data/present.txt", "/data/absent.txt")
	require.Error(t, err)
	assert.Contains(t, out, "Uploaded present.txt")
	assert.Contains(t, err.Error(), "absent.txt")
	assert.Contains(t, err.Error(), "1 error occurred")

	files := c.object("drafts", "files", draftID)

	statuses := map[string]interface{}{}
	for _, entry := range files["entries"].([]interface{}) {
		file := entry.(map[string]interface{})
		statuses[file["key"].(string)] = file["status"]
	}

	assert.Equal(t, map[string]interface{}{"present.txt": "completed", "absent.txt": "pending"}, statuses)

	_, err = c.run("drafts", "publish", draftID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "files.enabled")

	out, err = c.run("drafts", "delete-file", draftID, "absent.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted absent.txt")

	c.object("drafts", "publish", draftID)

	_, err = c.run("drafts", "upload", draftID)
	require.ErrorIs(t, err, constants.ErrNoFilesGiven)
}

//nolint:paralleltest // Commands share viper's global state
func TestDraftsCommands_UpdateFromFileAndDelete(t *testing.T) {
	c := newCLI(t)

	draft := c.object("records", "create", "--title", "Before")
	draftID := draft["id"].(string)

	c.writeFile(filepath.Join("/meta", "patch.json"), `{"metadata": {"title": "After", "publication_date": "2022-02-02"}}`)

	updated := c.object("drafts", "update", draftID, "--file", "/meta/patch.json")
	assert.Equal(t, "After", updated["metadata"].(map[string]interface{})["title"])

	stored, ok := c.server.Draft(draftID)
	require.True(t, ok)
	assert.Equal(t, "2022-02-02", stored["metadata"].(map[string]interface{})["publication_date"])

	_, err := c.run("drafts", "update", draftID)
	require.ErrorIs(t, err, constants.ErrFieldRequired)

	out, err := c.run("drafts", "delete", draftID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted draft "+draftID)

	_, ok = c.server.Draft(draftID)
	assert.False(t, ok)
}
