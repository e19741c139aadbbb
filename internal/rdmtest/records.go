package rdmtest

import (
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (s *Server) newDraft(id, parentID string, metadata map[string]interface{}) map[string]interface{} {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	draft := map[string]interface{}{
		"id":           id,
		"parent":       map[string]interface{}{"id": parentID},
		"metadata":     metadata,
		"files":        map[string]interface{}{"enabled": true},
		"is_published": false,
		"status":       "draft",
		"links": map[string]interface{}{
			"self":    s.URL + APIPrefix + "/records/" + id + "/draft",
			"publish": s.URL + APIPrefix + "/records/" + id + "/draft/actions/publish",
		},
	}
	s.drafts[id] = draft

	return draft
}

// publish turns the draft into the published record with the same id.
func (s *Server) publish(id string, draft map[string]interface{}) map[string]interface{} {
	record := clone(draft)
	record["is_published"] = true
	record["status"] = "published"
	record["links"] = map[string]interface{}{
		"self": s.URL + APIPrefix + "/records/" + id,
	}

	if _, exists := s.records[id]; !exists {
		s.recordOrder = append(s.recordOrder, id)

		parentID := parentOf(record)
		s.versions[parentID] = append(s.versions[parentID], id)
	}

	s.records[id] = record
	delete(s.drafts, id)

	if files, ok := s.draftFiles[id]; ok {
		s.recordFiles[id] = files
		delete(s.draftFiles, id)
	}

	return record
}

func parentOf(v map[string]interface{}) string {
	parent, _ := v["parent"].(map[string]interface{})
	id, _ := parent["id"].(string)

	return id
}

func (s *Server) createDraft(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}

	err := decodeBody(r, &body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid JSON body.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	metadata, _ := body["metadata"].(map[string]interface{})
	id := s.newID()
	draft := s.newDraft(id, id, metadata)

	writeJSON(w, r, http.StatusCreated, draft)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, r, http.StatusNotFound, "The persistent identifier does not exist.")

		return
	}

	writeJSON(w, r, http.StatusOK, record)
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, r, http.StatusNotFound, "The persistent identifier does not exist.")

		return
	}

	writeJSON(w, r, http.StatusOK, draft)
}

func (s *Server) editRecord(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")

	if draft, ok := s.drafts[id]; ok {
		writeJSON(w, r, http.StatusCreated, draft)

		return
	}

	record, ok := s.records[id]
	if !ok {
		writeError(w, r, http.StatusNotFound, "The persistent identifier does not exist.")

		return
	}

	draft := clone(record)
	draft["is_published"] = false
	draft["status"] = "draft"
	s.drafts[id] = draft

	writeJSON(w, r, http.StatusCreated, draft)
}

func (s *Server) updateDraft(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}

	err := decodeBody(r, &body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid JSON body.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, r, http.StatusNotFound, "The persistent identifier does not exist.")

		return
	}

	for key, value := range body {
		switch key {
		case "id", "parent", "links", "is_published", "status":
			continue
		default:
			draft[key] = value
		}
	}

	writeJSON(w, r, http.StatusOK, draft)
}

func (s *Server) deleteDraft(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	if _, ok := s.drafts[id]; !ok {
		writeError(w, r, http.StatusNotFound, "The persistent identifier does not exist.")

		return
	}

	delete(s.drafts, id)
	delete(s.draftFiles, id)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) publishDraft(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")

	draft, ok := s.drafts[id]
	if !ok {
		writeError(w, r, http.StatusNotFound, "The persistent identifier does not exist.")

		return
	}

	metadata, _ := draft["metadata"].(map[string]interface{})
	if title, _ := metadata["title"].(string); title == "" {
		writeValidationError(w, r, "metadata.title", "Missing data for required field.")

		return
	}

	for _, file := range s.draftFiles[id] {
		if file.Status != statusCompleted {
			writeValidationError(w, r, "files.enabled", "Missing uploaded files. To disable files for this record please mark it as metadata-only.")

			return
		}
	}

	writeJSON(w, r, http.StatusAccepted, s.publish(id, draft))
}

func (s *Server) newVersion(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, r, http.StatusNotFound, "The persistent identifier does not exist.")

		return
	}

	metadata, _ := clone(record)["metadata"].(map[string]interface{})
	draft := s.newDraft(s.newID(), parentOf(record), metadata)

	writeJSON(w, r, http.StatusCreated, draft)
}

func (s *Server) latestVersion(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, r, http.StatusNotFound, "The persistent identifier does not exist.")

		return
	}

	versions := s.versions[parentOf(record)]
	writeJSON(w, r, http.StatusOK, s.records[versions[len(versions)-1]])
}

func (s *Server) searchRecords(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.recordOrder
	if r.URL.Query().Get("allversions") != "1" {
		ids = s.latestOnly(ids)
	}

	s.writeRecordPage(w, r, ids)
}

func (s *Server) searchVersions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, r, http.StatusNotFound, "The persistent identifier does not exist.")

		return
	}

	s.writeRecordPage(w, r, s.versions[parentOf(record)])
}

func (s *Server) latestOnly(ids []string) []string {
	latest := make([]string, 0, len(ids))

	for _, id := range ids {
		versions := s.versions[parentOf(s.records[id])]
		if versions[len(versions)-1] == id {
			latest = append(latest, id)
		}
	}

	return latest
}

func (s *Server) writeRecordPage(w http.ResponseWriter, r *http.Request, ids []string) {
	query := r.URL.Query()
	q := strings.ToLower(query.Get("q"))

	matches := make([]map[string]interface{}, 0, len(ids))

	for _, id := range ids {
		record := s.records[id]
		if q == "" || strings.Contains(strings.ToLower(titleOf(record)), q) {
			matches = append(matches, record)
		}
	}

	writePage(w, r, matches)
}

func titleOf(v map[string]interface{}) string {
	metadata, _ := v["metadata"].(map[string]interface{})
	title, _ := metadata["title"].(string)

	return title
}

// writePage sorts matches per the sort parameter and writes one page of
// them as a search response.
func writePage(w http.ResponseWriter, r *http.Request, matches []map[string]interface{}) {
	query := r.URL.Query()

	page, err := strconv.Atoi(query.Get("page"))
	if err != nil || page < 1 {
		writeValidationError(w, r, "page", "Must be greater than or equal to 1.")

		return
	}

	size, err := strconv.Atoi(query.Get("size"))
	if err != nil || size < 1 {
		writeValidationError(w, r, "size", "Must be greater than or equal to 1.")

		return
	}

	ordered := slices.Clone(matches)

	switch query.Get("sort") {
	case "newest", "":
		slices.Reverse(ordered)
	case "title":
		sort.SliceStable(ordered, func(i, j int) bool {
			return titleOf(ordered[i]) < titleOf(ordered[j])
		})
	}

	start := min((page-1)*size, len(ordered))
	end := min(start+size, len(ordered))

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"hits": map[string]interface{}{
			"hits":  ordered[start:end],
			"total": len(ordered),
		},
		"aggregations": map[string]interface{}{},
		"sortBy":       query.Get("sort"),
	})
}
