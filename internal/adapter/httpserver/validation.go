package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

// maxBodyBytes bounds JSON request bodies; a 4000-rune message fits easily.
const maxBodyBytes = 64 << 10

var identRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New()
		vld.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = vld.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
			return identRE.MatchString(fl.Field().String())
		})
	})
	return vld
}

// ValidateID checks a path or body identifier: required, at most 100
// characters of letters, digits, hyphens and underscores.
func ValidateID(field, id string) []ValidationError {
	switch {
	case id == "":
		return []ValidationError{{Field: field, Code: "REQUIRED", Message: field + " is required"}}
	case len(id) > 100:
		return []ValidationError{{Field: field, Code: "TOO_LONG", Message: field + " is too long (max 100 characters)"}}
	case !identRE.MatchString(id):
		return []ValidationError{{Field: field, Code: "INVALID_FORMAT", Message: field + " contains invalid characters"}}
	}
	return nil
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// The returned details are suitable for the error envelope.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) ([]ValidationError, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return nil, fmt.Errorf("%w: content-type must be application/json", domain.ErrInvalidArgument)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty body", domain.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidArgument, err)
	}
	if err := getValidator().Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return toValidationErrors(verrs), fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil, nil
}

func toValidationErrors(verrs validator.ValidationErrors) []ValidationError {
	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		ve := ValidationError{Field: fe.Field()}
		switch fe.Tag() {
		case "required":
			ve.Code, ve.Message = "REQUIRED", fe.Field()+" is required"
		case "max":
			ve.Code, ve.Message = "TOO_LONG", fmt.Sprintf("%s is too long (max %s)", fe.Field(), fe.Param())
		case "oneof":
			ve.Code, ve.Message = "INVALID_VALUE", fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
		default:
			ve.Code, ve.Message = "INVALID_FORMAT", fe.Field()+" is invalid"
		}
		out = append(out, ve)
	}
	return out
}
