package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestParseImplementationID(t *testing.T) {
	logger := zap.NewNop()
	validUUID := uuid.New()

	tests := []struct {
		name       string
		pathValue  string
		wantOK     bool
		wantStatus int
	}{
		{name: "valid UUID", pathValue: validUUID.String(), wantOK: true, wantStatus: http.StatusOK},
		{name: "invalid UUID", pathValue: "not-a-uuid", wantOK: false, wantStatus: http.StatusBadRequest},
		{name: "empty", pathValue: "", wantOK: false, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/implementations/x", nil)
			req.SetPathValue("uuid", tt.pathValue)
			rec := httptest.NewRecorder()

			id, ok := ParseImplementationID(rec, req, logger)

			if ok != tt.wantOK {
				t.Fatalf("ParseImplementationID() ok = %v, want %v", ok, tt.wantOK)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("ParseImplementationID() status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ok && id != validUUID {
				t.Errorf("ParseImplementationID() id = %v, want %v", id, validUUID)
			}
			if !ok {
				if id != uuid.Nil {
					t.Errorf("ParseImplementationID() id = %v, want uuid.Nil", id)
				}
				var resp map[string]string
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp["error"] != "invalid_implementation_id" {
					t.Errorf("error = %v, want invalid_implementation_id", resp["error"])
				}
			}
		})
	}
}

func TestParsePatternID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/patterns/x", nil)
	req.SetPathValue("id", " imp-001 ")

	if got := ParsePatternID(req); got != "IMP-001" {
		t.Errorf("ParsePatternID() = %q, want IMP-001", got)
	}
}

func TestQueryBool(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{query: "include_deleted=true", want: true},
		{query: "include_deleted=1", want: true},
		{query: "include_deleted=false", want: false},
		{query: "include_deleted=maybe", want: false},
		{query: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/patterns?"+tt.query, nil)
			if got := queryBool(req, "include_deleted"); got != tt.want {
				t.Errorf("queryBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeRequest(t *testing.T) {
	logger := zap.NewNop()

	type payload struct {
		Title string `json:"title"`
	}

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"LOCF"}`))
		rec := httptest.NewRecorder()

		var p payload
		if !decodeRequest(rec, req, &p, logger) {
			t.Fatal("decodeRequest() = false, want true")
		}
		if p.Title != "LOCF" {
			t.Errorf("Title = %q, want LOCF", p.Title)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"LOCF","colour":"red"}`))
		rec := httptest.NewRecorder()

		var p payload
		if decodeRequest(rec, req, &p, logger) {
			t.Fatal("decodeRequest() = true, want false")
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		rec := httptest.NewRecorder()

		var p payload
		if decodeRequest(rec, req, &p, logger) {
			t.Fatal("decodeRequest() = true, want false")
		}

		var resp map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["error"] != "invalid_request" {
			t.Errorf("error = %v, want invalid_request", resp["error"])
		}
	})
}
