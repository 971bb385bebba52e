package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

func init() {
	// report wire names (json, then form) instead of Go field names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(wireName)
	}
}

func wireName(sf reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(sf.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return sf.Name
}

func BindJSON(ctx *gin.Context, out interface{}) bool {
	return bindWith(ctx, binding.JSON, out, "Invalid request body")
}

// BindJSONOr is BindJSON with a caller-chosen top-level message.
func BindJSONOr(ctx *gin.Context, out interface{}, message string) bool {
	return bindWith(ctx, binding.JSON, out, message)
}

// BindForm binds multipart or urlencoded form fields.
func BindForm(ctx *gin.Context, out interface{}, message string) bool {
	b := binding.Form
	if strings.HasPrefix(ctx.ContentType(), gin.MIMEMultipartPOSTForm) {
		b = binding.FormMultipart
	}
	return bindWith(ctx, b, out, message)
}

func bindWith(ctx *gin.Context, b binding.Binding, out interface{}, message string) bool {
	if err := ctx.ShouldBindWith(out, b); err != nil {
		RespondBadRequest(ctx, message, parseBindError(err))
		return false
	}
	return true
}

func parseBindError(err error) interface{} {
	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			rule := fieldError.Tag()
			param := fieldError.Param()

			fields = append(fields, FieldError{
				Field:   fieldPath(fieldError),
				Rule:    rule,
				Param:   param,
				Message: validationMessage(rule, param),
			})
		}
		return gin.H{"fields": fields}
	}

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) {
		field := strings.TrimSpace(unmatchedTypeError.Field)

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{
				{
					Field:   field,
					Rule:    "type",
					Message: fmt.Sprintf("must be of type %s", unmatchedTypeError.Type.String()),
				},
			},
		}
	}

	return gin.H{"reason": err.Error()}
}

// fieldPath drops the root struct from "RegisterRequest.email".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok && rest != "" {
		return rest
	}
	return fe.Field()
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "gt":
		return "must be greater than " + param
	case "gte":
		return "must be at least " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
