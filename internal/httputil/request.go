package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// maxBodyBytes bounds request bodies; post bodies are the largest payload.
const maxBodyBytes = 10 << 20

// ParseJSON decodes JSON from the request body into dest. Unknown fields are
// rejected so that a misspelled field in a PATCH is not silently ignored.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("invalid JSON: empty body")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

// PathID returns the named path value when it is a UUID
func PathID(r *http.Request, name string) (string, error) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id.String(), nil
}
