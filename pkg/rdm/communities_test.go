package rdm_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/fivetwenty-io/rdm-client/pkg/rdm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommunity(slug, title string) *rdm.Metadata {
	return rdm.NewMetadata(rdm.CommunityMetadata, rdm.Fields{
		"slug":     slug,
		"metadata": map[string]interface{}{"title": title},
		"access":   map[string]interface{}{"visibility": "public"},
	})
}

func TestCommunities(t *testing.T) { //nolint:funlen
	t.Parallel()

	ctx := context.Background()

	t.Run("create, get, update, delete", func(t *testing.T) {
		t.Parallel()

		client, server := newTestClient(t)

		community, err := client.Communities().Create(ctx, newCommunity("physics", "Physics"))
		require.NoError(t, err)

		communityID := id(t, community.Data())
		assert.NotEmpty(t, communityID)
		assert.Equal(t, "/api/communities", server.LastRequest().Path)

		bySlug, err := client.Communities().Community("physics").Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, communityID, id(t, bySlug.Data()))

		metadata, err := community.Data().Get("metadata")
		require.NoError(t, err)
		metadata.(map[string]interface{})["title"] = "Physics and Astronomy"

		community, err = community.Update(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "Physics and Astronomy", title(t, community.Data()))

		req := server.LastRequest()
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "/api/communities/"+communityID, req.Path)

		require.NoError(t, community.Delete(ctx))

		_, err = client.Communities().Community(communityID).Get(ctx)
		assert.True(t, rdm.IsNotFound(err))
	})

	t.Run("duplicate slug", func(t *testing.T) {
		t.Parallel()

		client, server := newTestClient(t)
		server.SeedCommunity("biology", "Biology")

		_, err := client.Communities().Create(ctx, newCommunity("biology", "Biology again"))

		httpErr := &rdm.HTTPError{}
		require.ErrorAs(t, err, &httpErr)
		require.Len(t, httpErr.Errors, 1)
		assert.Equal(t, "slug", httpErr.Errors[0].Field)
	})

	t.Run("update without data", func(t *testing.T) {
		t.Parallel()

		client, transport := newStubClient(http.StatusOK, `{}`)

		_, err := client.Communities().Community("x").Update(ctx, nil)
		require.ErrorIs(t, err, rdm.ErrNoData)
		assert.Empty(t, transport.requests)
	})

	t.Run("search", func(t *testing.T) {
		t.Parallel()

		client, server := newTestClient(t)
		server.SeedCommunity("chemistry", "Chemistry")
		server.SeedCommunity("geology", "Geology")
		server.SeedCommunity("geography", "Geography")

		page, err := client.Communities().Search(ctx, rdm.SearchParams{Query: "geo", Sort: "title"})
		require.NoError(t, err)

		assert.Equal(t, 2, page.Total())

		slugs := make([]string, 0, page.Len())
		for community := range page.All() {
			slug, err := community.Data().String("slug")
			require.NoError(t, err)

			slugs = append(slugs, slug)
		}

		assert.Equal(t, []string{"geography", "geology"}, slugs)
		assert.Equal(t, rdm.ContentTypeJSON, server.LastRequest().Header.Get("Accept"))
	})

	t.Run("iterate the first page", func(t *testing.T) {
		t.Parallel()

		client, server := newTestClient(t)
		first := server.SeedCommunity("one", "One")
		second := server.SeedCommunity("two", "Two")

		communities, err := client.Communities().Iter(ctx)
		require.NoError(t, err)

		var ids []string
		for community := range communities {
			ids = append(ids, id(t, community.Data()))

			endpoint, err := community.URL("")
			require.NoError(t, err)
			assert.Equal(t, server.BaseURL()+"/communities/"+id(t, community.Data()), endpoint)
		}

		assert.Equal(t, []string{second, first}, ids)
	})
}

func TestCommunityRecords(t *testing.T) { //nolint:funlen
	t.Parallel()

	ctx := context.Background()

	t.Run("add records and list them", func(t *testing.T) {
		t.Parallel()

		client, server := newTestClient(t)
		communityID := server.SeedCommunity("oceans", "Oceans")
		first := server.SeedRecord("Sea ice")
		second := server.SeedRecord("Currents")

		records := client.Communities().Community(communityID).Records()

		_, err := records.Add(ctx, first)
		require.NoError(t, err)

		req := server.LastRequest()
		assert.Equal(t, "/api/communities/"+communityID+"/records", req.Path)
		assert.JSONEq(t, `{"records": [{"id": "`+first+`"}]}`, string(req.Body))

		_, err = records.Add(ctx, []string{first, second})
		require.NoError(t, err)
		assert.Equal(t, []string{first, second}, server.CommunityRecordIDs(communityID))

		processed, err := records.Data().Get("processed")
		require.NoError(t, err)
		assert.Len(t, processed, 2)

		page, err := records.Search(ctx, rdm.SearchParams{})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total())

		for record := range page.All() {
			assert.IsType(t, &rdm.Record{}, record)
		}

		iterated, err := records.Iter(ctx)
		require.NoError(t, err)

		count := 0
		for range iterated {
			count++
		}

		assert.Equal(t, 2, count)
	})

	t.Run("add with normalized metadata", func(t *testing.T) {
		t.Parallel()

		client, server := newTestClient(t)
		communityID := server.SeedCommunity("maths", "Mathematics")
		recordID := server.SeedRecord("Proofs")

		body, err := rdm.NormalizeCommunityRecords([]string{recordID})
		require.NoError(t, err)

		_, err = client.Communities().Community(communityID).Records().Add(ctx, body)
		require.NoError(t, err)
		assert.Equal(t, []string{recordID}, server.CommunityRecordIDs(communityID))
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		client, server := newTestClient(t)
		communityID := server.SeedCommunity("empty", "Empty")

		_, err := client.Communities().Community(communityID).Records().Add(ctx, []string{})

		assert.True(t, rdm.IsValidation(err))
		assert.JSONEq(t, `{}`, string(server.LastRequest().Body))
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()

		client, transport := newStubClient(http.StatusOK, `{}`)

		_, err := client.Communities().Community("x").Records().Add(ctx, 42)

		invalid := &rdm.InvalidInputError{}
		require.ErrorAs(t, err, &invalid)
		assert.Empty(t, transport.requests)
	})
}
