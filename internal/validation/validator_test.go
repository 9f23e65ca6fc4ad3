// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package validation

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	UserID int64 `validate:"required,min=1"`
	N      int   `validate:"min=1,max=50"`
}

func TestValidateStructPasses(t *testing.T) {
	if verr := ValidateStruct(&sampleRequest{UserID: 42, N: 10}); verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
}

func TestValidateStructFailures(t *testing.T) {
	tests := []struct {
		name      string
		req       sampleRequest
		wantField string
	}{
		{"missing user id", sampleRequest{N: 10}, "UserID"},
		{"n too small", sampleRequest{UserID: 1, N: 0}, "N"},
		{"n too large", sampleRequest{UserID: 1, N: 51}, "N"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.req)
			if verr == nil {
				t.Fatal("expected validation error")
			}
			fields := verr.Fields()
			if len(fields) != 1 {
				t.Fatalf("got %d field errors, want 1: %v", len(fields), verr)
			}
			if fields[0].Field != tt.wantField {
				t.Errorf("field = %s, want %s", fields[0].Field, tt.wantField)
			}
		})
	}
}

func TestToAPIErrorSingleField(t *testing.T) {
	verr := ValidateStruct(&sampleRequest{UserID: 1, N: 99})
	if verr == nil {
		t.Fatal("expected validation error")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %s", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "N must be at most 50") {
		t.Errorf("message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "N" {
		t.Errorf("details field = %v", apiErr.Details["field"])
	}
}

func TestToAPIErrorMultipleFields(t *testing.T) {
	verr := ValidateStruct(&sampleRequest{N: 99})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if got := len(verr.Fields()); got != 2 {
		t.Fatalf("got %d field errors, want 2", got)
	}

	apiErr := verr.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("details fields has type %T", apiErr.Details["fields"])
	}
	if len(fields) != 2 {
		t.Errorf("got %d detail entries, want 2", len(fields))
	}
}
