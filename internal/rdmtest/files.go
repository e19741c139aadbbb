package rdmtest

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func filesList(files []*storedFile) map[string]interface{} {
	entries := make([]map[string]interface{}, 0, len(files))
	for _, file := range files {
		entries = append(entries, file.toJSON())
	}

	return map[string]interface{}{
		"enabled": true,
		"entries": entries,
		"order":   []string{},
	}
}

func findFile(files []*storedFile, key string) *storedFile {
	for _, file := range files {
		if file.Key == key {
			return file
		}
	}

	return nil
}

func (s *Server) listDraftFiles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	if _, ok := s.drafts[id]; !ok {
		writeError(w, r, http.StatusNotFound, "The persistent identifier does not exist.")

		return
	}

	writeJSON(w, r, http.StatusOK, filesList(s.draftFiles[id]))
}

func (s *Server) initFiles(w http.ResponseWriter, r *http.Request) {
	var body []map[string]interface{}

	err := decodeBody(r, &body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Expected a list of files.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	if _, ok := s.drafts[id]; !ok {
		writeError(w, r, http.StatusNotFound, "The persistent identifier does not exist.")

		return
	}

	for _, entry := range body {
		key, _ := entry["key"].(string)
		if key == "" {
			writeValidationError(w, r, "key", "Missing data for required field.")

			return
		}

		if findFile(s.draftFiles[id], key) != nil {
			writeError(w, r, http.StatusBadRequest, "File with key "+key+" already exists.")

			return
		}

		s.draftFiles[id] = append(s.draftFiles[id], &storedFile{Key: key, Status: statusPending})
	}

	writeJSON(w, r, http.StatusCreated, filesList(s.draftFiles[id]))
}

func (s *Server) draftFile(w http.ResponseWriter, r *http.Request) *storedFile {
	file := findFile(s.draftFiles[chi.URLParam(r, "id")], chi.URLParam(r, "filename"))
	if file == nil {
		writeError(w, r, http.StatusNotFound, "File not found.")
	}

	return file
}

func (s *Server) getDraftFile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if file := s.draftFile(w, r); file != nil {
		writeJSON(w, r, http.StatusOK, file.toJSON())
	}
}

func (s *Server) deleteDraftFile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	key := chi.URLParam(r, "filename")

	files := s.draftFiles[id]
	for i, file := range files {
		if file.Key == key {
			s.draftFiles[id] = append(files[:i:i], files[i+1:]...)
			w.WriteHeader(http.StatusNoContent)

			return
		}
	}

	writeError(w, r, http.StatusNotFound, "File not found.")
}

func (s *Server) uploadContent(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/octet-stream" {
		writeError(w, r, http.StatusUnsupportedMediaType, "Content must be sent as application/octet-stream.")

		return
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Could not read content.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file := s.draftFile(w, r)
	if file == nil {
		return
	}

	file.Content = content

	writeJSON(w, r, http.StatusOK, file.toJSON())
}

func (s *Server) commitFile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := s.draftFile(w, r)
	if file == nil {
		return
	}

	if file.Content == nil {
		writeError(w, r, http.StatusBadRequest, "File has no content.")

		return
	}

	file.Status = statusCompleted
	file.Checksum = checksum(file.Content)

	writeJSON(w, r, http.StatusOK, file.toJSON())
}

func writeContent(w http.ResponseWriter, file *storedFile) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+file.Key)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}

func (s *Server) downloadDraftContent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if file := s.draftFile(w, r); file != nil {
		writeContent(w, file)
	}
}

func (s *Server) importFiles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")

	draft, ok := s.drafts[id]
	if !ok {
		writeError(w, r, http.StatusNotFound, "The persistent identifier does not exist.")

		return
	}

	versions := s.versions[parentOf(draft)]
	if len(versions) == 0 {
		writeError(w, r, http.StatusNotFound, "No published version to import files from.")

		return
	}

	for _, file := range s.recordFiles[versions[len(versions)-1]] {
		copied := *file
		s.draftFiles[id] = append(s.draftFiles[id], &copied)
	}

	writeJSON(w, r, http.StatusCreated, filesList(s.draftFiles[id]))
}

func (s *Server) recordFile(w http.ResponseWriter, r *http.Request) *storedFile {
	file := findFile(s.recordFiles[chi.URLParam(r, "id")], chi.URLParam(r, "filename"))
	if file == nil {
		writeError(w, r, http.StatusNotFound, "File not found.")
	}

	return file
}

func (s *Server) listRecordFiles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	if _, ok := s.records[id]; !ok {
		writeError(w, r, http.StatusNotFound, "The persistent identifier does not exist.")

		return
	}

	writeJSON(w, r, http.StatusOK, filesList(s.recordFiles[id]))
}

func (s *Server) getRecordFile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if file := s.recordFile(w, r); file != nil {
		writeJSON(w, r, http.StatusOK, file.toJSON())
	}
}

func (s *Server) downloadRecordContent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if file := s.recordFile(w, r); file != nil {
		writeContent(w, file)
	}
}
