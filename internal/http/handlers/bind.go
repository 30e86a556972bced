package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BindJSON binds the request body into out and, on failure, answers with a
// flat 400 naming the first offending field.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		RespondBadRequest(ctx, bindErrorMessage(err, out))

		return false
	}

	return true
}

func bindErrorMessage(err error, out interface{}) string {
	var validatorErrors validator.ValidationErrors

	if errors.As(err, &validatorErrors) && len(validatorErrors) > 0 {
		first := validatorErrors[0]
		field := jsonFieldName(out, first.StructField())

		return fmt.Sprintf("Field %q %s", field, validationMessage(first.Tag(), first.Param()))
	}

	var typeError *json.UnmarshalTypeError

	if errors.As(err, &typeError) && typeError.Field != "" {
		return fmt.Sprintf("Field %q has an invalid type", typeError.Field)
	}

	return "Invalid request body"
}

// jsonFieldName maps a Go struct field back to its json tag name.
func jsonFieldName(out interface{}, structField string) string {
	t := reflect.TypeOf(out)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return structField
	}

	sf, ok := t.FieldByName(structField)

	if !ok {
		return structField
	}

	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")

	if name == "" || name == "-" {
		return structField
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uname":
		return "must be 3-30 characters of letters, digits, '_', '.' or '-' with no whitespace or emoji"
	case "len":
		return "must be exactly " + param + " characters"
	case "numeric":
		return "must contain only digits"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
