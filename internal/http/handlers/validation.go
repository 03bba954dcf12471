package handlers

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"flightbook/internal/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// report json field names instead of Go struct field names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// bindingIssues turns binder failures into field issues.
func bindingIssues(err error) []domain.FieldIssue {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]domain.FieldIssue, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, domain.FieldIssue{Field: jsonName(fe), Message: ruleMessage(fe)})
		}
		return out
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []domain.FieldIssue{{Field: typeErr.Field, Message: "must be a " + typeErr.Type.String()}}
	}
	return []domain.FieldIssue{{Field: "body", Message: "must be valid JSON"}}
}

func jsonName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" {
		return name
	}
	return fe.StructField()
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}
