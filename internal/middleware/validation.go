package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/ImamSharif/Healthcare-analytics/internal/errors"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/domain"
)

// ValidationMiddleware validates request bodies and tagged query structs.
type ValidationMiddleware struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	maxBodySize  int64
}

// NewValidationMiddleware creates a new validation middleware
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidationMiddleware{
		validator:    NewValidator(),
		logger:       logger.With(slog.String("component", "validation_middleware")),
		errorHandler: errorHandler,
		maxBodySize:  1 << 20,
	}
}

// NewValidator returns a validator that knows the dashboard's field tags
// and reports errors by json name.
func NewValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("month", isMonth)
	_ = v.RegisterValidation("dimension", isDimension)
	_ = v.RegisterValidation("measure", isMeasure)
	_ = v.RegisterValidation("period", isPeriod)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRequest rejects oversized or malformed JSON bodies on mutating
// requests.
func (m *ValidationMiddleware) ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > m.maxBodySize {
			m.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
				"Request body exceeds maximum allowed size",
				map[string]any{"max_size": m.maxBodySize, "size": r.ContentLength},
			))
			return
		}

		if r.Body != nil && r.ContentLength > 0 {
			body, err := io.ReadAll(io.LimitReader(r.Body, m.maxBodySize))
			if err != nil {
				m.logger.ErrorContext(r.Context(), "failed to read request body", slog.String("error", err.Error()))
				m.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			if !json.Valid(body) {
				m.errorHandler.HandleError(w, r, apierrors.New(
					http.StatusBadRequest,
					"INVALID_REQUEST",
					"Request body contains invalid JSON",
				))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// ValidateStruct validates v and converts failures into a 400 APIError
// listing every offending field.
func (m *ValidationMiddleware) ValidateStruct(v any) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "month":
		return fmt.Sprintf("%s must be a month such as 2024-01", field)
	case "dimension":
		return fmt.Sprintf("%s must be one of: %s", field, joinDimensions())
	case "measure":
		return fmt.Sprintf("%s must be one of: QTY, NIC, ITEMS", field)
	case "period":
		return fmt.Sprintf("%s must be one of: latest, last12, all", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func joinDimensions() string {
	dims := domain.Dimensions()
	names := make([]string, 0, len(dims))
	for _, d := range dims {
		names = append(names, string(d))
	}
	return strings.Join(names, ", ")
}

func isMonth(fl validator.FieldLevel) bool {
	_, err := domain.ParseMonth(fl.Field().String())
	return err == nil
}

func isDimension(fl validator.FieldLevel) bool {
	_, err := domain.ParseDimension(fl.Field().String())
	return err == nil
}

func isMeasure(fl validator.FieldLevel) bool {
	_, err := domain.ParseMeasure(fl.Field().String())
	return err == nil
}

func isPeriod(fl validator.FieldLevel) bool {
	_, err := domain.ParsePeriod(fl.Field().String())
	return err == nil
}

// QueryParamValidator validates scalar query parameters and writes the
// problem response itself when they are invalid.
type QueryParamValidator struct {
	errorHandler *apierrors.ErrorHandler
}

// NewQueryParamValidator creates a new query parameter validator
func NewQueryParamValidator(errorHandler *apierrors.ErrorHandler) *QueryParamValidator {
	return &QueryParamValidator{errorHandler: errorHandler}
}

// ValidateInt validates an integer query parameter
func (v *QueryParamValidator) ValidateInt(w http.ResponseWriter, r *http.Request, param string, min, max, defaultValue int) (int, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be a valid integer", param)))
		return 0, false
	}
	if n < min || n > max {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be between %d and %d", param, min, max)))
		return 0, false
	}
	return n, true
}
