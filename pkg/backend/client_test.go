package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formguide/pkg/field"
)

func mustClient(t *testing.T, url string, options ...Option) *Client {
	t.Helper()
	c, err := NewClient(url, options...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestAnalyzeFieldsPostsPayload(t *testing.T) {
	var got field.PageAnalysis
	var contentType, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/analyze-fields" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		contentType = r.Header.Get("Content-Type")
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := mustClient(t, srv.URL+"/", WithAuthToken("secret"))
	analysis := field.PageAnalysis{
		URL:       "https://permits.example.gov/apply",
		Title:     "Permit Application",
		Timestamp: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
		Fields: []field.LogicalField{
			{ID: "customer_name", Kind: field.KindText, Semantic: field.SemanticName},
		},
	}
	if err := c.AnalyzeFields(context.Background(), analysis); err != nil {
		t.Fatalf("AnalyzeFields: %v", err)
	}

	if contentType != "application/json" {
		t.Fatalf("content type = %q", contentType)
	}
	if auth != "Bearer secret" {
		t.Fatalf("authorization = %q", auth)
	}
	if got.URL != analysis.URL || len(got.Fields) != 1 {
		t.Fatalf("server saw %+v", got)
	}
	if got.Fields[0].Semantic != field.SemanticName {
		t.Fatalf("semantic type lost in transit: %+v", got.Fields[0])
	}
}

func TestProjectsDecodesWireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/projects" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`[
			{"id": "9", "name": "Garcia Residence",
			 "created_at": "2025-02-01T08:30:00Z",
			 "planset_text": "12 kW rooftop array",
			 "utility_bill_text": "Account 555-0100"},
			{"id": "7", "name": "Smith Residence", "created_at": "2025-01-15T10:00:00Z"}
		]`))
	}))
	defer srv.Close()

	projects, err := mustClient(t, srv.URL).Projects(context.Background())
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	want := []field.Project{
		{
			ID: "9", Name: "Garcia Residence",
			CreatedAt:       "2025-02-01T08:30:00Z",
			PlansetText:     "12 kW rooftop array",
			UtilityBillText: "Account 555-0100",
		},
		{ID: "7", Name: "Smith Residence", CreatedAt: "2025-01-15T10:00:00Z"},
	}
	if diff := cmp.Diff(want, projects); diff != "" {
		t.Fatalf("projects mismatch (-want +got):\n%s", diff)
	}
}

func TestAutoFillReturnsFieldValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Fields  []field.LogicalField `json:"fields"`
			Project field.Project        `json:"project"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Project.ID != "7" || len(req.Fields) != 1 {
			t.Errorf("unexpected request body: %+v", req)
		}
		w.Write([]byte(`{"success": true, "fieldValues": {"customer_name": "John Smith", "parcel": "N/A"}}`))
	}))
	defer srv.Close()

	values, err := mustClient(t, srv.URL).AutoFill(context.Background(),
		[]field.LogicalField{{ID: "customer_name"}}, field.Project{ID: "7"})
	if err != nil {
		t.Fatalf("AutoFill: %v", err)
	}
	if values["customer_name"] != "John Smith" {
		t.Fatalf("values = %+v", values)
	}
	if values["parcel"] != field.NoData {
		t.Fatalf("sentinel lost: %+v", values)
	}
}

func TestAutoFillNilValuesBecomesEmptyMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	values, err := mustClient(t, srv.URL).AutoFill(context.Background(), nil, field.Project{})
	if err != nil {
		t.Fatalf("AutoFill: %v", err)
	}
	if values == nil || len(values) != 0 {
		t.Fatalf("values = %#v, want empty non-nil map", values)
	}
}

func TestAutoFillSalvagesMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Here is the mapping you asked for:\n```json\n{\"customer_name\": \"John Smith\"}\n```\nLet me know if you need anything else."))
	}))
	defer srv.Close()

	values, err := mustClient(t, srv.URL).AutoFill(context.Background(), nil, field.Project{})
	if err != nil {
		t.Fatalf("AutoFill: %v", err)
	}
	if values["customer_name"] != "John Smith" {
		t.Fatalf("salvaged values = %+v", values)
	}
}

func TestErrorStatusCarriesTruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(strings.Repeat("x", 500)))
	}))
	defer srv.Close()

	_, err := mustClient(t, srv.URL).Projects(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("err = %v, want status code", err)
	}
	if len(err.Error()) > 300 {
		t.Fatalf("error body not truncated: %d bytes", len(err.Error()))
	}
}

func TestSalvage(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want field.ValueMap
	}{
		{
			name: "fenced json object",
			raw:  "```json\n{\"customer_name\": \"John Smith\", \"city\": \"San Diego\"}\n```",
			want: field.ValueMap{"customer_name": "John Smith", "city": "San Diego"},
		},
		{
			name: "embedded envelope",
			raw:  `The response: {"success": true, "fieldValues": {"zip": "92101"}} done`,
			want: field.ValueMap{"zip": "92101"},
		},
		{
			name: "key value scraping",
			raw:  `customer_name: "John Smith", project_address: "1 Main St"`,
			want: field.ValueMap{"customer_name": "John Smith", "project_address": "1 Main St"},
		},
		{
			name: "non string values dropped",
			raw:  `{"customer_name": "John Smith", "attempts": 3}`,
			want: field.ValueMap{"customer_name": "John Smith"},
		},
		{
			name: "first occurrence wins in scraping",
			raw:  `name: "John" trailing name: "Jane"`,
			want: field.ValueMap{"name": "John"},
		},
		{
			name: "hopeless body yields empty map",
			raw:  "sorry, I could not map any fields",
			want: field.ValueMap{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Salvage(tc.raw)); diff != "" {
				t.Fatalf("salvage mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestContractDescribesEndpoints(t *testing.T) {
	doc, err := Contract(context.Background())
	if err != nil {
		t.Fatalf("Contract: %v", err)
	}
	for _, path := range []string{"/api/analyze-fields", "/api/projects", "/api/auto-fill"} {
		if doc.Paths.Find(path) == nil {
			t.Fatalf("contract is missing %s", path)
		}
	}
}
