package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// IsJSON reports whether the request declares a JSON body.
func IsJSON(r *http.Request) bool {
	mediaType := contentType(r)
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func contentType(r *http.Request) string {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}

func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}

// bodyError maps a read failure to 413 or 400.
func bodyError(err error, limit int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Request body exceeds %d bytes", limit), err)
	}
	return NewHTTPError(http.StatusBadRequest, "Unable to read request body", err)
}

// JSONBodyParser reads JSON bodies up to limit bytes, rejects malformed
// ones and keeps the raw bytes in the context. The body stays readable for
// the handler.
func JSONBodyParser(limit int64) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasBody(r) || !IsJSON(r) {
				next.ServeHTTP(w, r)
				return
			}

			data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
			if err != nil {
				Fail(w, r, bodyError(err, limit))
				return
			}
			if len(bytes.TrimSpace(data)) == 0 {
				data = []byte("{}")
			}
			if !json.Valid(data) {
				Fail(w, r, NewHTTPError(http.StatusBadRequest, "Invalid JSON body", nil))
				return
			}

			r = r.WithContext(withJSONBody(r.Context(), data))
			r.Body = io.NopCloser(bytes.NewReader(data))
			next.ServeHTTP(w, r)
		})
	}
}

// FormBodyParser parses URL-encoded bodies up to limit bytes into
// r.PostForm.
func FormBodyParser(limit int64) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasBody(r) || contentType(r) != "application/x-www-form-urlencoded" {
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			if err := r.ParseForm(); err != nil {
				Fail(w, r, bodyError(err, limit))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DecodeJSON decodes the request's JSON body into dst, rejecting unknown
// fields. Errors are HTTPErrors with status 400.
func DecodeJSON(r *http.Request, dst interface{}) error {
	var src io.Reader
	if body, ok := JSONBody(r.Context()); ok {
		src = bytes.NewReader(body)
	} else if r.Body != nil {
		src = r.Body
	} else {
		return NewHTTPError(http.StatusBadRequest, "Request body is required", nil)
	}

	decoder := json.NewDecoder(src)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError

		switch {
		case errors.As(err, &syntaxError):
			return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid JSON syntax at byte offset %d", syntaxError.Offset), err)
		case errors.As(err, &unmarshalTypeError):
			return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid type for field '%s'", unmarshalTypeError.Field), err)
		case strings.HasPrefix(err.Error(), "json: unknown field"):
			return NewHTTPError(http.StatusBadRequest, "JSON contains "+strings.TrimPrefix(err.Error(), "json: "), err)
		case errors.Is(err, io.EOF):
			return NewHTTPError(http.StatusBadRequest, "Request body is required", err)
		default:
			return NewHTTPError(http.StatusBadRequest, "Invalid JSON body", err)
		}
	}
	return nil
}
