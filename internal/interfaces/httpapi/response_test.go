package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/dowdarts/aadsstatsscrapper/external/dartconnect"
	"github.com/dowdarts/aadsstatsscrapper/internal/domain/standings"
	"github.com/dowdarts/aadsstatsscrapper/internal/extract"
	"github.com/dowdarts/aadsstatsscrapper/internal/usecase"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
		wantCode   string
	}{
		{"invalid input", usecase.ErrInvalidInput, http.StatusBadRequest, "invalidInput", "INVALID_ARGUMENT"},
		{"confirmation required", usecase.ErrConfirmationRequired, http.StatusBadRequest, "confirmationRequired", "FAILED_PRECONDITION"},
		{"not found", usecase.ErrNotFound, http.StatusNotFound, "notFound", "NOT_FOUND"},
		{"duplicate record", standings.ErrDuplicateRecord, http.StatusConflict, "duplicateRecord", "ALREADY_EXISTS"},
		{"unparsable document", extract.ErrNoStrategyMatched, http.StatusUnprocessableEntity, "unparsableDocument", "FAILED_PRECONDITION"},
		{"upstream permanent", dartconnect.ErrPermanent, http.StatusBadGateway, "upstreamRejected", "FAILED_PRECONDITION"},
		{"upstream transient", dartconnect.ErrTransient, http.StatusServiceUnavailable, "dependencyUnavailable", "UNAVAILABLE"},
		{"dependency unavailable", usecase.ErrDependencyUnavailable, http.StatusServiceUnavailable, "dependencyUnavailable", "UNAVAILABLE"},
		{"unclassified", fmt.Errorf("boom"), http.StatusInternalServerError, "internalError", "INTERNAL"},
		{"wrapped sentinel", fmt.Errorf("merge record: %w", standings.ErrDuplicateRecord), http.StatusConflict, "duplicateRecord", "ALREADY_EXISTS"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mapped := mapError(tc.err)
			if mapped.HTTPStatus != tc.wantStatus {
				t.Fatalf("status = %d, want %d", mapped.HTTPStatus, tc.wantStatus)
			}
			if mapped.Reason != tc.wantReason {
				t.Fatalf("reason = %q, want %q", mapped.Reason, tc.wantReason)
			}
			if mapped.Status != tc.wantCode {
				t.Fatalf("status code = %q, want %q", mapped.Status, tc.wantCode)
			}
		})
	}
}

func TestWriteError_EnvelopeShape(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("player %q: %w", "nobody", usecase.ErrNotFound))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}

	var envelope googleResponseEnvelope
	if err := sonic.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.APIVersion != googleAPIVersion {
		t.Fatalf("apiVersion = %q", envelope.APIVersion)
	}
	if envelope.Error == nil || envelope.Error.Code != http.StatusNotFound || envelope.Error.Status != "NOT_FOUND" {
		t.Fatalf("unexpected error body: %+v", envelope.Error)
	}
	if len(envelope.Error.Errors) != 1 || envelope.Error.Errors[0].Domain != errorDomain {
		t.Fatalf("unexpected error items: %+v", envelope.Error.Errors)
	}
}

func TestWriteSuccess_EnvelopeShape(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeSuccess(rec, http.StatusCreated, map[string]string{"status": "merged"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d, want 201", rec.Code)
	}

	var envelope struct {
		APIVersion string            `json:"apiVersion"`
		Data       map[string]string `json:"data"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.APIVersion != googleAPIVersion || envelope.Data["status"] != "merged" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
}
