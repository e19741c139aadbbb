package rdm_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/fivetwenty-io/rdm-client/pkg/rdm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResource_URL(t *testing.T) {
	t.Parallel()

	client, _ := newStubClient(http.StatusOK, `{}`)

	tests := []struct {
		name     string
		template string
		args     rdm.Args
		suffix   string
		expected string
	}{
		{name: "no placeholders", template: "/records", expected: "https://rdm.example.org/api/records"},
		{name: "single placeholder", template: "/records/{id}", args: rdm.Args{"id": "abc-123"}, expected: "https://rdm.example.org/api/records/abc-123"},
		{
			name:     "two placeholders with suffix",
			template: "/records/{id}/draft/files/{filename}",
			args:     rdm.Args{"id": "1", "filename": "data.csv"},
			suffix:   "/content",
			expected: "https://rdm.example.org/api/records/1/draft/files/data.csv/content",
		},
		{
			name:     "values are escaped",
			template: "/records/{id}/files/{filename}",
			args:     rdm.Args{"id": "1", "filename": "my file/v2.txt"},
			expected: "https://rdm.example.org/api/records/1/files/my%20file%2Fv2.txt",
		},
		{name: "unused arguments are ignored", template: "/communities", args: rdm.Args{"id": "x"}, expected: "https://rdm.example.org/api/communities"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			resource := rdm.NewResource(client, testCase.template, testCase.args)

			endpoint, err := resource.URL(testCase.suffix)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, endpoint)
		})
	}
}

func TestResource_UnresolvedEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("fails before any request", func(t *testing.T) {
		t.Parallel()

		client, transport := newStubClient(http.StatusOK, `{}`)
		resource := rdm.NewResource(client, "/records/{id}/files/{filename}", rdm.Args{"id": "1"})

		err := resource.Get(context.Background(), rdm.FileMetadata)

		unresolved := &rdm.UnresolvedEndpointError{}
		require.ErrorAs(t, err, &unresolved)
		assert.Equal(t, []string{"filename"}, unresolved.Placeholders)
		assert.Empty(t, transport.requests)
	})

	t.Run("empty value is unbound", func(t *testing.T) {
		t.Parallel()

		client, transport := newStubClient(http.StatusOK, `{}`)
		resource := rdm.NewResource(client, "/records/{id}", rdm.Args{"id": ""})

		_, err := resource.URL("")

		unresolved := &rdm.UnresolvedEndpointError{}
		require.ErrorAs(t, err, &unresolved)
		assert.Equal(t, []string{"id"}, unresolved.Placeholders)
		assert.Empty(t, transport.requests)
	})

	t.Run("unbound draft from the records collection", func(t *testing.T) {
		t.Parallel()

		client, transport := newStubClient(http.StatusOK, `{}`)

		_, err := client.Records().Draft().Get(context.Background())

		unresolved := &rdm.UnresolvedEndpointError{}
		require.ErrorAs(t, err, &unresolved)
		assert.Equal(t, "/records/{id}/draft", unresolved.Template)
		assert.Empty(t, transport.requests)
	})

	t.Run("held data without the argument field", func(t *testing.T) {
		t.Parallel()

		client, transport := newStubClient(http.StatusOK, `{}`)
		resource := rdm.NewResource(client, "/records/{id}", nil)
		resource.SetData(rdm.NewMetadata(rdm.RecordMetadata, rdm.Fields{"title": "no id"}))

		err := resource.Get(context.Background(), rdm.RecordMetadata)

		missing := &rdm.MissingFieldError{}
		require.ErrorAs(t, err, &missing)
		assert.Empty(t, transport.requests)
	})
}

func TestResource_EndpointArgs(t *testing.T) {
	t.Parallel()

	t.Run("derived from held data", func(t *testing.T) {
		t.Parallel()

		client, _ := newStubClient(http.StatusOK, `{}`)
		resource := rdm.NewResource(client, "/records/{id}", nil)
		resource.SetData(rdm.NewMetadata(rdm.RecordMetadata, rdm.Fields{"id": "from-data"}))

		endpoint, err := resource.URL("")
		require.NoError(t, err)
		assert.Equal(t, "https://rdm.example.org/api/records/from-data", endpoint)
	})

	t.Run("explicit arguments win over held data", func(t *testing.T) {
		t.Parallel()

		client, _ := newStubClient(http.StatusOK, `{}`)
		resource := rdm.NewResource(client, "/records/{id}", rdm.Args{"id": "explicit"})
		resource.SetData(rdm.NewMetadata(rdm.RecordMetadata, rdm.Fields{"id": "from-data"}))

		args, err := resource.EndpointArgs()
		require.NoError(t, err)
		assert.Equal(t, rdm.Args{"id": "explicit"}, args)

		resource.Data().Set("id", "changed")

		args, err = resource.EndpointArgs()
		require.NoError(t, err)
		assert.Equal(t, "explicit", args["id"])
	})

	t.Run("explicit arguments are copied", func(t *testing.T) {
		t.Parallel()

		client, _ := newStubClient(http.StatusOK, `{}`)
		args := rdm.Args{"id": "1"}
		resource := rdm.NewResource(client, "/records/{id}", args)
		args["id"] = "2"

		endpoint, err := resource.URL("")
		require.NoError(t, err)
		assert.Equal(t, "https://rdm.example.org/api/records/1", endpoint)
	})

	t.Run("descent inherits arguments", func(t *testing.T) {
		t.Parallel()

		client, _ := newStubClient(http.StatusOK, `{}`)
		file := client.Records().Record("42").Draft().Files().File("a.png")

		args, err := file.EndpointArgs()
		require.NoError(t, err)
		assert.Equal(t, rdm.Args{"id": "42", "filename": "a.png"}, args)
		assert.Equal(t, "/records/42/draft/files/a.png", file.String())

		community := client.Communities().Community("physics").Records()
		assert.Equal(t, "/communities/physics/records", community.String())
	})
}

func TestResource_Headers(t *testing.T) {
	t.Parallel()

	client, _ := newStubClient(http.StatusOK, `{}`)
	resource := rdm.NewResource(client, "/records", nil)

	tests := []struct {
		name        string
		accept      rdm.Contract
		body        *rdm.Metadata
		extra       map[string]string
		acceptType  string
		contentType string
	}{
		{name: "draft", accept: rdm.DraftMetadata, body: draftWithTitle("x"), acceptType: rdm.ContentTypeInvenioJSON, contentType: rdm.ContentTypeJSON},
		{name: "upload", accept: rdm.FileMetadata, body: rdm.NewStream(nil), acceptType: rdm.ContentTypeJSON, contentType: rdm.ContentTypeOctetStream},
		{name: "download", accept: rdm.IncomingStream},
		{name: "no body", accept: rdm.RecordMetadata, acceptType: rdm.ContentTypeJSON},
		{
			name:        "override",
			accept:      rdm.RecordMetadata,
			body:        draftWithTitle("x"),
			extra:       map[string]string{"Accept": "application/ld+json", "X-Custom": "1"},
			acceptType:  "application/ld+json",
			contentType: rdm.ContentTypeJSON,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			headers := resource.Headers(testCase.accept, testCase.body, testCase.extra)

			assert.Equal(t, testCase.acceptType, headers.Get("Accept"))
			assert.Equal(t, testCase.contentType, headers.Get("Content-Type"))

			for key, value := range testCase.extra {
				assert.Equal(t, value, headers.Get(key))
			}
		})
	}
}

func TestResource_Verbs(t *testing.T) {
	t.Parallel()

	t.Run("successful call replaces held data", func(t *testing.T) {
		t.Parallel()

		client, transport := newStubClient(http.StatusOK, `{"id": "1", "metadata": {"title": "Fresh"}}`)
		resource := rdm.NewResource(client, "/records/{id}", rdm.Args{"id": "1"})
		resource.SetData(rdm.NewMetadata(rdm.RecordMetadata, rdm.Fields{"id": "1"}))

		err := resource.Get(context.Background(), rdm.RecordMetadata,
			rdm.WithHeaders(map[string]string{"X-Trace": "abc"}))
		require.NoError(t, err)

		assert.Equal(t, "Fresh", title(t, resource.Data()))
		require.Len(t, transport.requests, 1)

		req := transport.requests[0]
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "https://rdm.example.org/api/records/1", req.URL)
		assert.Equal(t, rdm.ContentTypeJSON, req.Headers.Get("Accept"))
		assert.Equal(t, "abc", req.Headers.Get("X-Trace"))
		assert.Nil(t, req.Body)
	})

	t.Run("body is encoded with its family", func(t *testing.T) {
		t.Parallel()

		client, transport := newStubClient(http.StatusOK, `{"id": "1"}`)
		resource := rdm.NewResource(client, "/records/{id}/draft", rdm.Args{"id": "1"})

		err := resource.Put(context.Background(), rdm.DraftMetadata, rdm.WithBody(draftWithTitle("Sent")))
		require.NoError(t, err)

		assert.Equal(t, http.MethodPut, transport.requests[0].Method)
		assert.JSONEq(t,
			`{"metadata": {"title": "Sent", "resource_type": {"id": "dataset"}, "publication_date": "2024-05-01"}}`,
			transport.bodies[0])
	})

	t.Run("non-2xx leaves held data unchanged", func(t *testing.T) {
		t.Parallel()

		client, _ := newStubClient(http.StatusNotFound, `{"status": 404, "message": "The persistent identifier does not exist."}`)
		resource := rdm.NewResource(client, "/records/{id}", rdm.Args{"id": "1"})
		previous := rdm.NewMetadata(rdm.RecordMetadata, rdm.Fields{"id": "1", "metadata": map[string]interface{}{"title": "Old"}})
		resource.SetData(previous)

		err := resource.Get(context.Background(), rdm.RecordMetadata)

		httpErr := &rdm.HTTPError{}
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
		assert.True(t, rdm.IsNotFound(err))
		assert.Same(t, previous, resource.Data())
	})

	t.Run("undecodable response leaves held data unchanged", func(t *testing.T) {
		t.Parallel()

		client, _ := newStubClient(http.StatusOK, `<html></html>`)
		resource := rdm.NewResource(client, "/records/{id}", rdm.Args{"id": "1"})

		err := resource.Get(context.Background(), rdm.RecordMetadata)

		deserialization := &rdm.DeserializationError{}
		require.ErrorAs(t, err, &deserialization)
		assert.Nil(t, resource.Data())
	})

	t.Run("transport failure", func(t *testing.T) {
		t.Parallel()

		client, transport := newStubClient(http.StatusOK, `{}`)
		transport.err = errors.New("connection refused")
		resource := rdm.NewResource(client, "/records", nil)

		err := resource.Post(context.Background(), rdm.DraftMetadata)
		require.EqualError(t, err, "connection refused")
		assert.Nil(t, resource.Data())
	})

	t.Run("target receives the response", func(t *testing.T) {
		t.Parallel()

		client, transport := newStubClient(http.StatusCreated, `{"id": "new-id"}`)
		collection := rdm.NewResource(client, "/records", nil)
		target := rdm.NewResource(client, "/records/{id}/draft", nil)

		err := collection.Post(context.Background(), rdm.DraftMetadata, rdm.WithTarget(&target))
		require.NoError(t, err)

		assert.Nil(t, collection.Data())
		assert.Equal(t, "new-id", id(t, target.Data()))
		assert.Equal(t, "https://rdm.example.org/api/records", transport.requests[0].URL)

		endpoint, err := target.URL("")
		require.NoError(t, err)
		assert.Equal(t, "https://rdm.example.org/api/records/new-id/draft", endpoint)
	})

	t.Run("delete without a family keeps data", func(t *testing.T) {
		t.Parallel()

		client, transport := newStubClient(http.StatusNoContent, ``)
		resource := rdm.NewResource(client, "/records/{id}/draft", rdm.Args{"id": "1"})
		held := rdm.NewMetadata(rdm.DraftMetadata, rdm.Fields{"id": "1"})
		resource.SetData(held)

		err := resource.Delete(context.Background(), nil)
		require.NoError(t, err)

		assert.Same(t, held, resource.Data())
		assert.Equal(t, http.MethodDelete, transport.requests[0].Method)
		assert.Empty(t, transport.requests[0].Headers.Get("Accept"))
	})

	t.Run("raw returns the undecoded response", func(t *testing.T) {
		t.Parallel()

		client, transport := newStubClient(http.StatusOK, "binary")
		resource := rdm.NewResource(client, "/records/{id}/files/{filename}", rdm.Args{"id": "1", "filename": "a.bin"})

		resp, err := resource.Raw(context.Background(), rdm.IncomingStream, rdm.WithSuffix("/content"))
		require.NoError(t, err)

		assert.Equal(t, "binary", string(resp.Body))
		assert.Nil(t, resource.Data())
		assert.Equal(t, "https://rdm.example.org/api/records/1/files/a.bin/content", transport.requests[0].URL)
	})
}

func TestClient(t *testing.T) {
	t.Parallel()

	client, transport := newStubClient(http.StatusOK, `{}`)

	assert.Equal(t, "https://rdm.example.org/api", client.BaseURL())
	assert.Same(t, transport, client.Transport())
	assert.Equal(t, "/records", client.Records().Template())
	assert.Equal(t, "/communities", client.Communities().Template())
	assert.Same(t, client, client.Records().Client())
}
