package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tradelens/internal/adapter/memstore"
	"tradelens/internal/domain"
	"tradelens/internal/usecase"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := memstore.NewStore(
		map[string]domain.NAICSProducts{
			"311111": {
				Exports: []domain.Product{{HS10: "2309101000", HS6: "230910"}},
				Imports: []domain.Product{{HS10: "2309101000", HS6: "230910"}},
			},
		},
		map[string]*domain.TradeRecord{
			"230910": {
				ExportValue: map[string]int64{"MEXICO": 100, "CANADA": 50},
				ImportValue: map[string]int64{"CHINA": 80, "JAPAN": 20},
				Deficit:     map[string]int64{"MEXICO": -100, "CANADA": -50, "CHINA": 80, "JAPAN": 20},
			},
		},
		domain.ChinaIndex{"230910": 80},
		map[string]domain.DefenseScore{
			"230910": {HS6: "230910", Description: "Dog or cat food", Score: 1, Reasoning: "pet food"},
		},
		map[string]string{"311111": "Dog and Cat Food Manufacturing"},
	)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(usecase.NewExploreUseCase(store), logger, 1000)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestStatsEndpoint(t *testing.T) {
	ts := testServer(t)

	var stats map[string]any
	resp := getJSON(t, ts.URL+"/api/stats", &stats)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	if stats["total_hs6"].(float64) != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}
	if stats["total_china_deficit"].(float64) != 80 {
		t.Errorf("unexpected stats: %v", stats)
	}
}

func TestProductsEndpoint(t *testing.T) {
	ts := testServer(t)

	var list struct {
		Products []map[string]any `json:"products"`
		Total    int              `json:"total"`
	}
	getJSON(t, ts.URL+"/api/products?search=cat+food", &list)
	if list.Total != 1 || len(list.Products) != 1 {
		t.Fatalf("unexpected listing: %+v", list)
	}
	p := list.Products[0]
	if p["hs6"] != "230910" {
		t.Errorf("unexpected product: %v", p)
	}
	if p["china_import_share"].(float64) != 0.8 {
		t.Errorf("unexpected share: %v", p["china_import_share"])
	}
}

func TestProductsEndpoint_BadLimit(t *testing.T) {
	ts := testServer(t)

	resp := getJSON(t, ts.URL+"/api/products?limit=abc", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestProductDetailEndpoint(t *testing.T) {
	ts := testServer(t)

	var detail struct {
		HS6       string `json:"hs6"`
		Countries []struct {
			Country string `json:"country"`
			Balance int64  `json:"balance"`
		} `json:"countries"`
		NAICS []struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"naics"`
	}
	getJSON(t, ts.URL+"/api/products/230910", &detail)
	if detail.HS6 != "230910" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if len(detail.Countries) != 4 || detail.Countries[0].Country != "MEXICO" {
		t.Errorf("unexpected country order: %+v", detail.Countries)
	}
	if len(detail.NAICS) != 1 || detail.NAICS[0].Name != "Dog and Cat Food Manufacturing" {
		t.Errorf("unexpected industries: %+v", detail.NAICS)
	}
}

func TestProductDetailEndpoint_NotFound(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/products/999999")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	// Not-found keeps status 200 and reports the error in the body.
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(body)) != `{"error":"Product not found"}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestNAICSEndpoints(t *testing.T) {
	ts := testServer(t)

	var list struct {
		NAICS []map[string]any `json:"naics"`
	}
	getJSON(t, ts.URL+"/api/naics", &list)
	if len(list.NAICS) != 1 || list.NAICS[0]["code"] != "311111" {
		t.Fatalf("unexpected listing: %+v", list)
	}

	var detail struct {
		Code     string           `json:"code"`
		Products []map[string]any `json:"products"`
	}
	getJSON(t, ts.URL+"/api/naics/311111", &detail)
	if detail.Code != "311111" || len(detail.Products) != 1 {
		t.Errorf("unexpected detail: %+v", detail)
	}
}

func TestCriticalEndpoint(t *testing.T) {
	ts := testServer(t)

	var matrix struct {
		Products []map[string]any `json:"products"`
		Total    int              `json:"total"`
	}
	getJSON(t, ts.URL+"/api/critical", &matrix)
	if matrix.Total != 1 {
		t.Fatalf("unexpected matrix: %+v", matrix)
	}

	getJSON(t, ts.URL+"/api/critical?min_defense_score=5", &matrix)
	if matrix.Total != 0 {
		t.Errorf("score threshold not applied: %+v", matrix)
	}

	resp := getJSON(t, ts.URL+"/api/critical?min_china_deficit=oops", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestIndexPage(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type %q", ct)
	}
}
