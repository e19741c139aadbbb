// Package rdmtest runs an in-memory InvenioRDM API for tests. It covers the
// records, drafts, versions, files and communities endpoints with enough
// server behaviour to drive full workflows.
package rdmtest

import (
	"bytes"
	"crypto/md5" // #nosec G501 -- InvenioRDM reports md5 checksums
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// APIPrefix is where the API is mounted, as on real instances.
const APIPrefix = "/api"

// RecordedRequest is a request as received by the server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type storedFile struct {
	Key      string
	Status   string
	Content  []byte
	Checksum string
}

func (f *storedFile) toJSON() map[string]interface{} {
	entry := map[string]interface{}{
		"key":    f.Key,
		"status": f.Status,
	}

	if f.Status == statusCompleted {
		entry["size"] = len(f.Content)
		entry["checksum"] = f.Checksum
		entry["mimetype"] = "application/octet-stream"
	}

	return entry
}

const (
	statusPending   = "pending"
	statusCompleted = "completed"
)

// Server is a fake InvenioRDM instance.
type Server struct {
	*httptest.Server

	mu    sync.Mutex
	token string

	nextID      int
	drafts      map[string]map[string]interface{}
	records     map[string]map[string]interface{}
	recordOrder []string
	versions    map[string][]string
	draftFiles  map[string][]*storedFile
	recordFiles map[string][]*storedFile

	communities      map[string]map[string]interface{}
	communityOrder   []string
	communityRecords map[string][]string

	requests []RecordedRequest
}

// Option configures a Server.
type Option func(*Server)

// WithToken makes the server reject requests without this bearer token.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// NewServer starts a server. Close it when done.
func NewServer(opts ...Option) *Server {
	s := &Server{
		drafts:           map[string]map[string]interface{}{},
		records:          map[string]map[string]interface{}{},
		versions:         map[string][]string{},
		draftFiles:       map[string][]*storedFile{},
		recordFiles:      map[string][]*storedFile{},
		communities:      map[string]map[string]interface{}{},
		communityRecords: map[string][]string{},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.Server = httptest.NewServer(s.routes())

	return s
}

// BaseURL is the API root to configure clients with.
func (s *Server) BaseURL() string {
	return s.URL + APIPrefix
}

// Requests returns every request received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]RecordedRequest(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return RecordedRequest{}
	}

	return s.requests[len(s.requests)-1]
}

// RequestCount returns how many requests were received.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

// SeedRecord publishes a record with the given title directly and returns
// its id.
func (s *Server) SeedRecord(title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	draft := s.newDraft(id, id, map[string]interface{}{"title": title})
	s.publish(id, draft)

	return id
}

// SeedRecordFile attaches a committed file to a published record.
func (s *Server) SeedRecordFile(recordID, key string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recordFiles[recordID] = append(s.recordFiles[recordID], &storedFile{
		Key:      key,
		Status:   statusCompleted,
		Content:  content,
		Checksum: checksum(content),
	})
}

// SeedCommunity creates a community and returns its id.
func (s *Server) SeedCommunity(slug, title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createCommunity(slug, map[string]interface{}{"title": title})
}

// Draft returns a copy of the stored draft, if any.
func (s *Server) Draft(id string) (map[string]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[id]

	return clone(draft), ok
}

// CommunityRecordIDs returns the records included in a community.
func (s *Server) CommunityRecordIDs(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.communityRecords[id]...)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.authenticate)

	r.Route(APIPrefix, func(r chi.Router) {
		r.Route("/records", func(r chi.Router) {
			r.Get("/", s.searchRecords)
			r.Post("/", s.createDraft)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getRecord)

				r.Route("/draft", func(r chi.Router) {
					r.Get("/", s.getDraft)
					r.Post("/", s.editRecord)
					r.Put("/", s.updateDraft)
					r.Delete("/", s.deleteDraft)
					r.Post("/actions/publish", s.publishDraft)
					r.Post("/actions/files-import", s.importFiles)

					r.Route("/files", func(r chi.Router) {
						r.Get("/", s.listDraftFiles)
						r.Post("/", s.initFiles)
						r.Get("/{filename}", s.getDraftFile)
						r.Delete("/{filename}", s.deleteDraftFile)
						r.Put("/{filename}/content", s.uploadContent)
						r.Get("/{filename}/content", s.downloadDraftContent)
						r.Post("/{filename}/commit", s.commitFile)
					})
				})

				r.Route("/versions", func(r chi.Router) {
					r.Get("/", s.searchVersions)
					r.Post("/", s.newVersion)
					r.Get("/latest", s.latestVersion)
				})

				r.Route("/files", func(r chi.Router) {
					r.Get("/", s.listRecordFiles)
					r.Get("/{filename}", s.getRecordFile)
					r.Get("/{filename}/content", s.downloadRecordContent)
				})
			})
		})

		r.Route("/communities", func(r chi.Router) {
			r.Get("/", s.searchCommunities)
			r.Post("/", s.postCommunity)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getCommunity)
				r.Put("/", s.updateCommunity)
				r.Delete("/", s.deleteCommunity)
				r.Get("/records", s.searchCommunityRecords)
				r.Post("/records", s.addCommunityRecords)
			})
		})
	})

	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, r, http.StatusUnauthorized, "The server could not verify that you are authorized to access the URL requested.")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) newID() string {
	s.nextID++

	return fmt.Sprintf("%05d-rdm%02d", s.nextID, s.nextID%100)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, map[string]interface{}{"status": status, "message": message})
}

func writeValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	writeJSON(w, r, http.StatusBadRequest, map[string]interface{}{
		"status":  http.StatusBadRequest,
		"message": "A validation error occurred.",
		"errors": []map[string]interface{}{
			{"field": field, "messages": []string{message}},
		},
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	return json.Unmarshal(body, v)
}

func checksum(content []byte) string {
	sum := md5.Sum(content) // #nosec G401 -- matches the server's checksum format

	return "md5:" + hex.EncodeToString(sum[:])
}

func clone(v map[string]interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}

	data, _ := json.Marshal(v)

	var copied map[string]interface{}

	_ = json.Unmarshal(data, &copied)

	return copied
}

func newCommunityID() string {
	return uuid.NewString()
}
