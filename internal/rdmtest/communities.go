package rdmtest

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (s *Server) createCommunity(slug string, metadata map[string]interface{}) string {
	id := newCommunityID()

	s.communities[id] = map[string]interface{}{
		"id":       id,
		"slug":     slug,
		"metadata": metadata,
		"access":   map[string]interface{}{"visibility": "public"},
		"links": map[string]interface{}{
			"self":    s.URL + APIPrefix + "/communities/" + id,
			"records": s.URL + APIPrefix + "/communities/" + id + "/records",
		},
	}
	s.communityOrder = append(s.communityOrder, id)

	return id
}

// lookupCommunity resolves an id or a slug.
func (s *Server) lookupCommunity(w http.ResponseWriter, r *http.Request) (string, map[string]interface{}) {
	key := chi.URLParam(r, "id")

	if community, ok := s.communities[key]; ok {
		return key, community
	}

	for id, community := range s.communities {
		if community["slug"] == key {
			return id, community
		}
	}

	writeError(w, r, http.StatusNotFound, "The persistent identifier does not exist.")

	return "", nil
}

func (s *Server) searchCommunities(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(r.URL.Query().Get("q"))

	matches := make([]map[string]interface{}, 0, len(s.communityOrder))

	for _, id := range s.communityOrder {
		community := s.communities[id]
		slug, _ := community["slug"].(string)

		if q == "" || strings.Contains(strings.ToLower(titleOf(community)), q) || strings.Contains(slug, q) {
			matches = append(matches, community)
		}
	}

	if r.URL.Query().Get("page") == "" {
		r.URL.RawQuery = "page=1&size=10&sort=newest&" + r.URL.RawQuery
	}

	writePage(w, r, matches)
}

func (s *Server) postCommunity(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}

	err := decodeBody(r, &body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid JSON body.")

		return
	}

	slug, _ := body["slug"].(string)
	if slug == "" {
		writeValidationError(w, r, "slug", "Missing data for required field.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, community := range s.communities {
		if community["slug"] == slug {
			writeValidationError(w, r, "slug", "A community with this identifier already exists.")

			return
		}
	}

	metadata, _ := body["metadata"].(map[string]interface{})
	id := s.createCommunity(slug, metadata)

	writeJSON(w, r, http.StatusCreated, s.communities[id])
}

func (s *Server) getCommunity(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, community := s.lookupCommunity(w, r); community != nil {
		writeJSON(w, r, http.StatusOK, community)
	}
}

func (s *Server) updateCommunity(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}

	err := decodeBody(r, &body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid JSON body.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, community := s.lookupCommunity(w, r)
	if community == nil {
		return
	}

	for _, key := range []string{"slug", "metadata", "access"} {
		if value, ok := body[key]; ok {
			community[key] = value
		}
	}

	writeJSON(w, r, http.StatusOK, community)
}

func (s *Server) deleteCommunity(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, community := s.lookupCommunity(w, r)
	if community == nil {
		return
	}

	delete(s.communities, id)
	delete(s.communityRecords, id)

	s.communityOrder = slices.DeleteFunc(s.communityOrder, func(other string) bool { return other == id })

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) searchCommunityRecords(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, community := s.lookupCommunity(w, r)
	if community == nil {
		return
	}

	if r.URL.Query().Get("page") == "" {
		r.URL.RawQuery = "page=1&size=10&sort=newest&" + r.URL.RawQuery
	}

	s.writeRecordPage(w, r, s.communityRecords[id])
}

func (s *Server) addCommunityRecords(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Records []struct {
			ID string `json:"id"`
		} `json:"records"`
	}

	err := decodeBody(r, &body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid JSON body.")

		return
	}

	if len(body.Records) == 0 {
		writeValidationError(w, r, "records", "Missing data for required field.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, community := s.lookupCommunity(w, r)
	if community == nil {
		return
	}

	processed := make([]map[string]interface{}, 0, len(body.Records))
	failed := make([]map[string]interface{}, 0)

	for _, record := range body.Records {
		if _, ok := s.records[record.ID]; !ok {
			failed = append(failed, map[string]interface{}{"record_id": record.ID, "message": "Record not found."})

			continue
		}

		if !slices.Contains(s.communityRecords[id], record.ID) {
			s.communityRecords[id] = append(s.communityRecords[id], record.ID)
		}

		processed = append(processed, map[string]interface{}{"record_id": record.ID})
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"processed": processed,
		"errors":    failed,
	})
}
