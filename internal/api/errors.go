package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"animetracker/internal/catalog"
	"animetracker/internal/club"
	"animetracker/internal/show"
	"animetracker/internal/user"
	"animetracker/internal/watchlist"
)

var errBadRequest = errors.New("invalid request")

// Validation errors name fields by their json tag, not the Go field.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	}
}

// writeError maps domain errors onto status codes. Client errors carry their
// message; everything else is logged and answered with a generic one.
func (h *handler) writeError(c *gin.Context, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorContext(c.Request.Context(), "request failed",
			slog.String("path", c.FullPath()),
			slog.String("request_id", c.GetString(ctxRequestID)),
			slog.Any("error", err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, user.ErrDuplicateUser),
		errors.Is(err, user.ErrInvalidInput),
		errors.Is(err, watchlist.ErrInvalidReference),
		errors.Is(err, watchlist.ErrInvalidEntry),
		errors.Is(err, show.ErrInvalidShow),
		errors.Is(err, club.ErrInvalidClub),
		errors.Is(err, catalog.ErrInvalidRequest),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized, user.ErrInvalidCredentials.Error()
	case errors.Is(err, watchlist.ErrForbidden):
		return http.StatusForbidden, watchlist.ErrForbidden.Error()
	case errors.Is(err, show.ErrNotFound):
		return http.StatusNotFound, show.ErrNotFound.Error()
	case errors.Is(err, club.ErrNotFound):
		return http.StatusNotFound, club.ErrNotFound.Error()
	case errors.Is(err, watchlist.ErrConflict):
		return http.StatusConflict, watchlist.ErrConflict.Error()
	case errors.Is(err, catalog.ErrUpstreamUnavailable):
		return http.StatusBadGateway, catalog.ErrUpstreamUnavailable.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name)
	}
	return id, nil
}

// bindError turns a binding failure into a field-level message without
// decoder internals.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &verrs):
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return fmt.Errorf("%w: %s", errBadRequest, strings.Join(msgs, "; "))
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return fmt.Errorf("%w: %s must be a %s", errBadRequest, typeErr.Field, jsonKind(typeErr.Type))
	default:
		return fmt.Errorf("%w: malformed JSON body", errBadRequest)
	}
}

func fieldMessage(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s%s", fe.Field(), fe.Param(), unit)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s%s", fe.Field(), fe.Param(), unit)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "valid value"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Ptr:
		return jsonKind(t.Elem())
	default:
		return "valid value"
	}
}
