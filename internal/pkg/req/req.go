/*
Package req provides helpers for HTTP request parsing and data binding.

It encapsulates strict JSON body decoding with unified error reporting so
handlers do not repeat Content-Type and format checks.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"chatrelay/internal/pkg/errs"
)

// MaxBodyBytes is the upper bound (1 MB) applied to request bodies before decoding.
const MaxBodyBytes int64 = 1 << 20

// BindJSON binds the JSON request body to dst.
// Unknown fields and trailing content are rejected.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
