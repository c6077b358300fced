package database

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
		details map[string]string
	}{
		{
			name:    "duplicate code in category",
			err:     &pq.Error{Code: "23505", Constraint: "drugs_code_category_key"},
			status:  http.StatusConflict,
			code:    "CONFLICT",
			message: "an item with this code already exists in this category",
		},
		{
			name:    "duplicate barcode in category",
			err:     &pq.Error{Code: "23505", Constraint: "drugs_barcode_category_key"},
			status:  http.StatusConflict,
			code:    "CONFLICT",
			message: "an item with this barcode already exists in this category",
		},
		{
			name:    "wrapped unique violation",
			err:     fmt.Errorf("insert item: %w", &pq.Error{Code: "23505", Constraint: "other_key"}),
			status:  http.StatusConflict,
			code:    "CONFLICT",
			message: "a record with these values already exists",
		},
		{
			name:    "negative quantity",
			err:     &pq.Error{Code: "23514", Constraint: "drugs_quantity_non_negative"},
			status:  http.StatusBadRequest,
			code:    "VALIDATION_ERROR",
			message: "validation failed",
			details: map[string]string{"quantity": "must not be negative"},
		},
		{
			name:    "foreign key",
			err:     &pq.Error{Code: "23503"},
			status:  http.StatusBadRequest,
			code:    "BAD_REQUEST",
			message: "referenced record does not exist",
		},
		{
			name:    "not null",
			err:     &pq.Error{Code: "23502", Column: "drug_name"},
			status:  http.StatusBadRequest,
			code:    "VALIDATION_ERROR",
			message: "validation failed",
			details: map[string]string{"drug_name": "must not be empty"},
		},
		{
			name:    "integer overflow",
			err:     &pq.Error{Code: "22003", Message: "integer out of range"},
			status:  http.StatusBadRequest,
			code:    "VALIDATION_ERROR",
			message: "numeric value out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := MapPQError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.status, appErr.StatusCode)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
			if tt.details != nil {
				assert.Equal(t, tt.details, appErr.Details)
			}
		})
	}
}

func TestMapPQError_Unmapped(t *testing.T) {
	assert.Nil(t, MapPQError(fmt.Errorf("connection refused")))
	assert.Nil(t, MapPQError(&pq.Error{Code: "40001"}))
}
