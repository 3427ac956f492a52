package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxRequestBody caps request bodies at 10MB. Large file payloads arrive as
// base64 and land in blob storage, so nothing legitimate exceeds this.
const maxRequestBody = 10 << 20

// ParseJSON decodes JSON from the request body into the given destination.
// The body is size-limited; w is required so MaxBytesReader can send a
// proper 413.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}
