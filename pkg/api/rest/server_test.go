package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/colisflow/colisflow/internal/model"
	cferrors "github.com/colisflow/colisflow/pkg/errors"
	"github.com/colisflow/colisflow/pkg/ingest"
)

type mockSubmitter struct {
	lastSub    *model.Submission
	lastManual *ingest.ManualRecord
	err        error
}

func (m *mockSubmitter) Submit(ctx context.Context, sub model.Submission) (*ingest.Receipt, error) {
	m.lastSub = &sub
	if m.err != nil {
		return nil, m.err
	}
	return &ingest.Receipt{
		Token:  "tok-1",
		Type:   sub.Type,
		Date:   sub.ReportingDate,
		Tables: []string{"public.LTH_Evt_defauts"},
	}, nil
}

func (m *mockSubmitter) SubmitManual(ctx context.Context, rec ingest.ManualRecord) (*ingest.Receipt, error) {
	m.lastManual = &rec
	if m.err != nil {
		return nil, m.err
	}
	return &ingest.Receipt{Token: "tok-2", Date: rec.Date}, nil
}

type mockLedger struct {
	last    time.Time
	missing []time.Time
	err     error
}

func (m *mockLedger) LastDate(ctx context.Context, t model.DataType) (time.Time, error) {
	return m.last, m.err
}

func (m *mockLedger) MissingDates(ctx context.Context, t model.DataType, now time.Time, limit int) ([]time.Time, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.missing) {
		return m.missing[:limit], nil
	}
	return m.missing, nil
}

func newTestServer(sub *mockSubmitter, led *mockLedger) *Server {
	return NewServer(Config{
		Addr:      "localhost:0",
		Site:      "LTH",
		Submitter: sub,
		Ledger:    led,
	})
}

func multipartBody(t *testing.T, date string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if date != "" {
		if err := w.WriteField("date", date); err != nil {
			t.Fatalf("WriteField failed: %v", err)
		}
	}
	fw, err := w.CreateFormFile("file", "extract.xlsx")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	fw.Write(content)
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(&mockSubmitter{}, &mockLedger{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
}

func TestServer_Submit(t *testing.T) {
	sub := &mockSubmitter{}
	s := newTestServer(sub, &mockLedger{})

	body, ct := multipartBody(t, "2025-04-05", []byte("workbook bytes"))
	req := httptest.NewRequest("POST", "/v1/extracts/events", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if sub.lastSub == nil {
		t.Fatal("Submit was not invoked")
	}
	if sub.lastSub.Type != model.TypeEvents {
		t.Errorf("Expected type OPB, got %s", sub.lastSub.Type)
	}
	if sub.lastSub.Site != "LTH" {
		t.Errorf("Expected site LTH, got %s", sub.lastSub.Site)
	}
	want := time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC)
	if !sub.lastSub.ReportingDate.Equal(want) {
		t.Errorf("Expected date %v, got %v", want, sub.lastSub.ReportingDate)
	}
	if string(sub.lastSub.Content) != "workbook bytes" {
		t.Error("Uploaded content was not passed through")
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if resp["token"] != "tok-1" {
		t.Errorf("Expected token tok-1, got %v", resp["token"])
	}
}

func TestServer_Submit_UnknownType(t *testing.T) {
	s := newTestServer(&mockSubmitter{}, &mockLedger{})

	body, ct := multipartBody(t, "2025-04-05", []byte("x"))
	req := httptest.NewRequest("POST", "/v1/extracts/nonsense", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestServer_Submit_BadDate(t *testing.T) {
	s := newTestServer(&mockSubmitter{}, &mockLedger{})

	body, ct := multipartBody(t, "05/04/2025", []byte("x"))
	req := httptest.NewRequest("POST", "/v1/extracts/events", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestServer_Submit_MalformedExtract(t *testing.T) {
	sub := &mockSubmitter{err: cferrors.MissingColumn("Message", nil)}
	s := newTestServer(sub, &mockLedger{})

	body, ct := multipartBody(t, "2025-04-05", []byte("x"))
	req := httptest.NewRequest("POST", "/v1/extracts/events", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if !strings.Contains(resp["error"], "re-upload") {
		t.Errorf("Expected re-upload instruction, got %q", resp["error"])
	}
	if strings.Contains(resp["error"], "Message") {
		t.Error("Column details must not leak to the operator")
	}
}

func TestServer_Submit_StoreFailure(t *testing.T) {
	sub := &mockSubmitter{err: cferrors.New(cferrors.CodeStoreWrite, "write failed")}
	s := newTestServer(sub, &mockLedger{})

	body, ct := multipartBody(t, "2025-04-05", []byte("x"))
	req := httptest.NewRequest("POST", "/v1/extracts/events", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}

func TestServer_SPTGD(t *testing.T) {
	sub := &mockSubmitter{}
	s := newTestServer(sub, &mockLedger{})

	payload := `{"date":"2025-04-05","heure":"14:30","securite":true,"preventif":true}`
	req := httptest.NewRequest("POST", "/v1/sptgd", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if sub.lastManual == nil {
		t.Fatal("SubmitManual was not invoked")
	}
	want := time.Date(2025, 4, 5, 14, 30, 0, 0, time.UTC)
	if !sub.lastManual.Date.Equal(want) {
		t.Errorf("Expected %v, got %v", want, sub.lastManual.Date)
	}
	if !sub.lastManual.Securite || !sub.lastManual.Preventif {
		t.Error("Flags were not carried over")
	}
	if sub.lastManual.TauxDispo {
		t.Error("Unset flag should stay false")
	}
}

func TestServer_SPTGD_BadBody(t *testing.T) {
	s := newTestServer(&mockSubmitter{}, &mockLedger{})

	req := httptest.NewRequest("POST", "/v1/sptgd", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestServer_Missing(t *testing.T) {
	led := &mockLedger{missing: []time.Time{
		time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
	}}
	s := newTestServer(&mockSubmitter{}, led)

	req := httptest.NewRequest("GET", "/v1/types/qualite/missing", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		Type    string   `json:"type"`
		Missing []string `json:"missing"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if resp.Type != "Qualité_de_tri" {
		t.Errorf("Expected ledger type name, got %s", resp.Type)
	}
	if len(resp.Missing) != 2 || resp.Missing[0] != "04/04/2025" {
		t.Errorf("Unexpected missing dates: %v", resp.Missing)
	}
}

func TestServer_Missing_Limit(t *testing.T) {
	led := &mockLedger{missing: []time.Time{
		time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
	}}
	s := newTestServer(&mockSubmitter{}, led)

	req := httptest.NewRequest("GET", "/v1/types/qualite/missing?limit=1", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var resp struct {
		Missing []string `json:"missing"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(resp.Missing) != 1 {
		t.Errorf("Expected 1 date, got %d", len(resp.Missing))
	}

	req = httptest.NewRequest("GET", "/v1/types/qualite/missing?limit=abc", nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", w.Code)
	}
}

func TestServer_Last(t *testing.T) {
	led := &mockLedger{last: time.Date(2025, 4, 6, 0, 0, 0, 0, time.UTC)}
	s := newTestServer(&mockSubmitter{}, led)

	req := httptest.NewRequest("GET", "/v1/types/interventions/last", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if resp["last"] != "2025-04-06" {
		t.Errorf("Expected 2025-04-06, got %s", resp["last"])
	}
}

func TestSlugs_CoverAllExtracts(t *testing.T) {
	seen := make(map[model.DataType]bool)
	for _, slug := range model.Slugs() {
		dt, ok := model.TypeFromSlug(slug)
		if !ok {
			t.Fatalf("slug %s did not resolve", slug)
		}
		seen[dt] = true
	}
	for _, dt := range model.AllTypes() {
		if !seen[dt] {
			t.Errorf("no API slug for %s", dt)
		}
	}
}
