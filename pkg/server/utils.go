package server

import (
	"encoding/json"
	"net/http"
)

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.log.WithField("status", statusCode).Warn(message)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": statusCode, "message": message},
	})
}
