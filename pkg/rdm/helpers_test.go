package rdm_test

import (
	"context"
	"io"
	"testing"

	"github.com/fivetwenty-io/rdm-client/internal/rdmtest"
	"github.com/fivetwenty-io/rdm-client/pkg/rdm"
	"github.com/fivetwenty-io/rdm-client/pkg/rdmclient"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

// stubTransport answers every request with the same canned response.
type stubTransport struct {
	requests []*rdm.Request
	bodies   []string
	status   int
	body     string
	err      error
}

func (s *stubTransport) Do(ctx context.Context, req *rdm.Request) (*rdm.Response, error) {
	s.requests = append(s.requests, req)

	body := ""
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}

	s.bodies = append(s.bodies, body)

	if s.err != nil {
		return nil, s.err
	}

	status := s.status
	if status == 0 {
		status = 200
	}

	resp := &rdm.Response{StatusCode: status, Body: []byte(s.body)}
	if status >= 300 {
		return resp, rdm.NewHTTPError(status, resp.Body)
	}

	return resp, nil
}

func newStubClient(status int, body string) (*rdm.Client, *stubTransport) {
	transport := &stubTransport{status: status, body: body}

	return rdm.NewClient("https://rdm.example.org/api/", transport), transport
}

func newTestClient(t *testing.T) (*rdm.Client, *rdmtest.Server) {
	t.Helper()

	server := rdmtest.NewServer(rdmtest.WithToken(testToken))
	t.Cleanup(server.Close)

	client, err := rdmclient.NewWithToken(server.BaseURL(), testToken)
	require.NoError(t, err)

	return client, server
}

func draftWithTitle(title string) *rdm.Metadata {
	return rdm.NewMetadata(rdm.DraftMetadata, rdm.Fields{
		"metadata": map[string]interface{}{
			"title":            title,
			"resource_type":    map[string]interface{}{"id": "dataset"},
			"publication_date": "2024-05-01",
		},
	})
}

func title(t *testing.T, m *rdm.Metadata) string {
	t.Helper()

	value, err := m.Lookup("metadata", "title")
	require.NoError(t, err)

	return value.(string)
}

func id(t *testing.T, m *rdm.Metadata) string {
	t.Helper()

	value, err := m.String("id")
	require.NoError(t, err)

	return value
}
