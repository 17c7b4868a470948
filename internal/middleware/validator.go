package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
)

// Input validation and sanitization utilities

const maxJSONBodyBytes = 64 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("analysisid", func(fl validator.FieldLevel) bool {
		return ValidAnalysisID(fl.Field().String())
	})
	return v
}

// DecodeJSON reads a JSON body into dst and validates its struct tags.
// Every failure is an analysis.ErrInvalidInput.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return analysis.Invalidf("request body too large")
		case errors.Is(err, io.EOF):
			return analysis.Invalidf("request body is required")
		}
		return analysis.Invalidf("malformed JSON body")
	}
	return Struct(dst)
}

// Struct validates v and turns the first failing field into a client message.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return analysis.Invalidf("invalid request")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return analysis.Invalidf("%s is required", fe.Field())
	case "max":
		return analysis.Invalidf("%s is too long", fe.Field())
	}
	return analysis.Invalidf("%s is invalid", fe.Field())
}

// ValidAnalysisID accepts opaque ids of letters, digits, dash and underscore (max 64 chars).
func ValidAnalysisID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
