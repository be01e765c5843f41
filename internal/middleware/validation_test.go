package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type tabRequest struct {
	Tab string `json:"tab" validate:"required,oneof=products add"`
}

// Feature: storefront, Property 13: Required request fields are enforced
func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a request passes only when every required field is present", prop.ForAll(
		func(includeEmail bool, includePassword bool) bool {
			body := make(map[string]interface{})
			if includeEmail {
				body["email"] = "admin@zarab.example"
			}
			if includePassword {
				body["password"] = "correct-horse"
			}

			raw, _ := json.Marshal(body)
			req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader(raw))

			var dto signInRequest
			err := DecodeAndValidate(req, &dto)

			if includeEmail && includePassword {
				return err == nil
			}
			return err != nil && IsValidationFailure(err) && len(FormatValidationErrors(err)) > 0
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: storefront, Property 14: Tab names outside the enumeration are rejected
func TestProperty_TabOneOfValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("only products and add validate", prop.ForAll(
		func(tab string) bool {
			err := ValidateRequest(tabRequest{Tab: tab})
			if tab == "products" || tab == "add" {
				return err == nil
			}
			return err != nil
		},
		gen.OneConstOf("products", "add", "settings", "", "Products", "ADD", "orders"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestFormatValidationErrors_Messages(t *testing.T) {
	err := ValidateRequest(signInRequest{Email: "not-an-email", Password: "short"})
	require.Error(t, err)

	formatted := FormatValidationErrors(err)
	require.Len(t, formatted, 2)
	assert.Equal(t, ValidationError{Field: "Email", Message: "Invalid email format"}, formatted[0])
	assert.Equal(t, ValidationError{Field: "Password", Message: "Value is too short"}, formatted[1])

	formatted = FormatValidationErrors(ValidateRequest(tabRequest{Tab: "settings"}))
	require.Len(t, formatted, 1)
	assert.Equal(t, "Value must be one of: products add", formatted[0].Message)
}

func TestDecodeAndValidate_RejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewBufferString("{not json"))

	var dto signInRequest
	err := DecodeAndValidate(req, &dto)
	require.Error(t, err)
	assert.False(t, IsValidationFailure(err))
	assert.Empty(t, FormatValidationErrors(err))
}

func TestDecodeAndValidate_RejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(`{"email":"a@b.co","password":"12345678","role":"admin"}`))

	var dto signInRequest
	assert.Error(t, DecodeAndValidate(req, &dto))
}
