package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/pairwish/internal/wishlist"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so messages match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// requestError is a client mistake reported as 400 with msg.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// normalizer is implemented by request bodies that trim their fields
// before validation.
type normalizer interface {
	normalize()
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid JSON")
	}
	if n, ok := v.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(v); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			return &requestError{msg: describe(ves[0])}
		}
		return badRequest("invalid request")
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	case "email":
		return fe.Field() + " must be an email address"
	case "url", "http_url":
		return fe.Field() + " must be a URL"
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// reason drops the family prefixes of a wrapped sentinel, keeping the
// human readable tail.
func reason(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

// writeError maps err onto the API's error taxonomy. Anything not
// recognised is a backing store failure and is reported as unavailable.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var re *requestError
	switch {
	case errors.As(err, &re):
		writeMessage(w, http.StatusBadRequest, re.msg)
	case errors.Is(err, wishlist.ErrInvalidRequest):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, wishlist.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, wishlist.ErrInvalidOccasion):
		writeMessage(w, http.StatusBadRequest, reason(err))
	case errors.Is(err, wishlist.ErrForbidden):
		writeMessage(w, http.StatusForbidden, reason(err))
	case errors.Is(err, wishlist.ErrRejected):
		writeMessage(w, http.StatusConflict, reason(err))
	default:
		logger.Error("request failed", "error", err)
		writeMessage(w, http.StatusServiceUnavailable, "unavailable")
	}
}

// outcome labels err for the mutation counter.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, wishlist.ErrNotFound):
		return "not_found"
	case errors.Is(err, wishlist.ErrForbidden):
		return "forbidden"
	case errors.Is(err, wishlist.ErrRejected):
		return "rejected"
	default:
		var re *requestError
		if errors.As(err, &re) {
			return "invalid"
		}
		return "error"
	}
}
