package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/Sokol111/newsletter-publisher/internal/idempotency"
	"github.com/Sokol111/newsletter-publisher/internal/publish"
)

// maxBodyBytes bounds the request body. Issue content is the only large field.
const maxBodyBytes = 4 << 20

// decodeCommand reads a publish command from a JSON or form-encoded body.
func decodeCommand(w http.ResponseWriter, r *http.Request) (publish.Command, error) {
	var cmd publish.Command
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&cmd); err != nil {
			return cmd, bodyError(err)
		}
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return cmd, bodyError(err)
		}
		cmd.Title = r.PostFormValue("title")
		cmd.TextContent = r.PostFormValue("text")
		cmd.HTMLContent = r.PostFormValue("html")
		cmd.IdempotencyKey = r.PostFormValue("idempotency_key")
	default:
		return cmd, fmt.Errorf("unsupported content type %q", mediaType)
	}
	return cmd, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
	}
	return fmt.Errorf("malformed request body: %w", err)
}

// writeCached replays a stored response exactly: status, headers in order, body.
func writeCached(w http.ResponseWriter, resp idempotency.CachedResponse) {
	h := w.Header()
	for _, hdr := range resp.Headers {
		h.Add(hdr.Name, string(hdr.Value))
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
