// Package rdm provides the resource binding for the InvenioRDM REST API.
//
// # Overview
//
// Every endpoint is modeled as a Resource: an endpoint template such as
// "/records/{id}/draft" plus the path arguments bound to it and the metadata
// returned by the last successful call. Resources never perform I/O when they
// are constructed; navigating from a parent to a child only copies path
// arguments. Most consumers create a client with the rdmclient package and
// walk the hierarchy from Records() or Communities().
//
//	cli, err := rdmclient.New(&rdm.Config{
//	  BaseURL:     "https://inveniordm.example.org/api",
//	  AccessToken: os.Getenv("RDM_TOKEN"),
//	})
//	if err != nil { log.Fatal(err) }
//
//	draft, err := cli.Records().Create(ctx, rdm.NewMetadata(rdm.DraftMetadata, rdm.Fields{
//	  "metadata": map[string]interface{}{"title": "My dataset"},
//	}))
//	if err != nil { log.Fatal(err) }
//
//	_, err = draft.Files().Create(ctx, rdm.NewFileEntries("data.csv"))
//	file := draft.Files().File("data.csv")
//	_, err = file.SetContents(ctx, f)
//	_, err = file.Commit(ctx)
//
//	record, err := draft.Publish(ctx)
//
// # Path arguments
//
// A resource resolves its template from the arguments it was created with,
// merged over the arguments derived from its held metadata. Explicit
// arguments always win. An unbound placeholder is reported as an
// UnresolvedEndpointError when a URL is built, before any request is sent.
//
// # Contracts
//
// A Contract describes one payload family: the Accept and Content-Type
// headers it negotiates, how a response body is decoded into Metadata, and
// which path arguments the metadata yields. The families used by the API are
// exported as package variables (RecordMetadata, DraftMetadata,
// FilesListMetadata, ...).
//
// # Searching
//
// Search methods return a Pagination. Its All method yields resources built
// from the hits of the page; NextPage and PreviousPage re-run the same search
// for the neighbouring page.
//
//	page, err := cli.Records().Search(ctx, rdm.SearchParams{Query: "climate"})
//	for record := range page.All() {
//	  fmt.Println(record.Data().String("id"))
//	}
//	page, err = page.NextPage(ctx)
//
// # Errors
//
// Non-2xx responses are returned as *HTTPError and are never retried.
// IsNotFound, IsUnauthorized, IsForbidden and IsValidation branch on the
// common cases. A failed call leaves the held metadata untouched.
package rdm
