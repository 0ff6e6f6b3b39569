package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrTooLarge is returned by DecodeJSON when the body exceeds the limit.
var ErrTooLarge = errors.New("payload too large")

// DecodeJSON reads at most limit bytes of JSON from r into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrTooLarge
		}
		return err
	}
	return nil
}
