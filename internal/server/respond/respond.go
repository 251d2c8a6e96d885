// Package respond centralizes the JSON wire conventions: success bodies are
// plain JSON, errors are {"detail": "..."}, and bearer failures carry the
// WWW-Authenticate challenge.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

type detailBody struct {
	Detail string `json:"detail"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteDetail writes an error body {"detail": detail}.
func WriteDetail(w http.ResponseWriter, status int, detail string) {
	WriteJSON(w, status, detailBody{Detail: detail})
}

// Unauthorized writes a 401 with the bearer challenge header.
func Unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteDetail(w, http.StatusUnauthorized, detail)
}

// DecodeJSON decodes one JSON value from the request body into dst, rejecting
// unknown fields and trailing data.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
