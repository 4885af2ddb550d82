package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("order INV001: %w", ErrNotFound), http.StatusNotFound},
		{ErrDuplicate, http.StatusConflict},
		{ErrValidation, http.StatusBadRequest},
		{ErrConflict, http.StatusConflict},
		{fmt.Errorf("%w: connection reset", ErrUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
		assert.Equal(t, tc.status != http.StatusInternalServerError, IsKnown(tc.err))
		assert.NotContains(t, rr.Body.String(), "connection reset")
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	require.ErrorIs(t, DecodeJSON(req, &target), ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"} {}`))
	require.ErrorIs(t, DecodeJSON(req, &target), ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, DecodeJSON(req, &target))
	assert.Equal(t, "a", target.Name)
}

func TestFieldErrorsUseJSONNames(t *testing.T) {
	type line struct {
		Code string `json:"product_code" validate:"required"`
		Qty  int    `json:"quantity" validate:"gt=0"`
	}
	type payload struct {
		Supplier string `json:"supplier_id" validate:"required"`
		Lines    []line `json:"lines" validate:"required,min=1,dive"`
	}
	err := NewValidator().Struct(payload{Lines: []line{{Qty: 0}}})
	fields := FieldErrors(err)
	require.NotNil(t, fields)
	assert.Equal(t, "is required", fields["supplier_id"])
	assert.Equal(t, "is required", fields["lines[0].product_code"])
	assert.Equal(t, "must be greater than 0", fields["lines[0].quantity"])

	rr := httptest.NewRecorder()
	FieldProblem(rr, fields)
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.Status)
	assert.Len(t, body.Errors, 3)

	assert.Nil(t, FieldErrors(fmt.Errorf("plain")))
}
