package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type providerInfo struct {
	Name       string   `json:"name"`
	IDField    string   `json:"idField"`
	TTL        int      `json:"ttl"`
	Categories []string `json:"categories"`
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	writeBody(w, code, "application/json", payload)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// writeBody encodes payload before any header is written.
func writeBody(w http.ResponseWriter, code int, contentType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("encode response", zap.Error(err))
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(code)
	w.Write(body) //nolint:errcheck
}
