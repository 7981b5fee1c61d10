package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetMarketAssets_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/markets" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("vs_currency") != "usd" {
			t.Errorf("vs_currency = %q, want usd", q.Get("vs_currency"))
		}
		if q.Get("order") != "market_cap_desc" {
			t.Errorf("order = %q, want market_cap_desc", q.Get("order"))
		}
		if q.Get("per_page") != "20" {
			t.Errorf("per_page = %q, want 20", q.Get("per_page"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"https://img/btc.png","current_price":60000,"market_cap_rank":1,"price_change_percentage_24h":2.5},
			{"id":"ethereum","symbol":"eth","name":"Ethereum","image":"https://img/eth.png","current_price":3000,"market_cap_rank":2,"price_change_percentage_24h":-1.2}
		]`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	assets, err := client.GetMarketAssets(context.Background(), 20)
	if err != nil {
		t.Fatalf("GetMarketAssets returned error: %v", err)
	}

	if len(assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(assets))
	}
	if assets[0].ID != "bitcoin" || assets[0].CurrentPrice != 60000 {
		t.Errorf("unexpected first asset: %+v", assets[0])
	}
	if assets[1].ChangePercent24H != -1.2 {
		t.Errorf("ChangePercent24H = %v, want -1.2", assets[1].ChangePercent24H)
	}
}

func TestGetMarketAssets_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.GetMarketAssets(context.Background(), 20)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestGetAssetDetail_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/bitcoin" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id":"bitcoin","symbol":"btc","name":"Bitcoin",
			"image":{"small":"https://img/btc-small.png","large":"https://img/btc-large.png"},
			"market_data":{
				"current_price":{"usd":60000},
				"market_cap":{"usd":1200000000000},
				"total_volume":{"usd":35000000000},
				"price_change_percentage_24h":2.5
			}
		}`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	detail, err := client.GetAssetDetail(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("GetAssetDetail returned error: %v", err)
	}
	if detail == nil {
		t.Fatal("expected non-nil detail")
	}
	if detail.PriceUSD != 60000 {
		t.Errorf("PriceUSD = %v, want 60000", detail.PriceUSD)
	}
	if detail.Image != "https://img/btc-small.png" {
		t.Errorf("Image = %q, want small image URL", detail.Image)
	}
}

func TestGetAssetDetail_TransportFailureReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	detail, err := client.GetAssetDetail(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("expected nil error on unreachable provider, got %v", err)
	}
	if detail != nil {
		t.Errorf("expected nil detail on unreachable provider, got %+v", detail)
	}
}

func TestGetAssetDetail_NotFoundReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"coin not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	detail, err := client.GetAssetDetail(context.Background(), "nope")
	if err != nil {
		t.Fatalf("expected nil error for 404, got %v", err)
	}
	if detail != nil {
		t.Errorf("expected nil detail for 404, got %+v", detail)
	}
}

func TestGetAssetDetail_RateLimitedReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error_code":429}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	detail, err := client.GetAssetDetail(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("expected nil error for 429, got %v", err)
	}
	if detail != nil {
		t.Errorf("expected nil detail for 429, got %+v", detail)
	}
}

func TestGetMarketChart_ParsesPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/bitcoin/market_chart" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("days") != "7" {
			t.Errorf("days = %q, want 7", r.URL.Query().Get("days"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"prices":[[1700000000000,59000],[1700086400000,60000]]}`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	points, err := client.GetMarketChart(context.Background(), "bitcoin", 7)
	if err != nil {
		t.Fatalf("GetMarketChart returned error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Price != 59000 {
		t.Errorf("first price = %v, want 59000", points[0].Price)
	}
	if points[0].Time.UnixMilli() != 1700000000000 {
		t.Errorf("first timestamp = %d, want 1700000000000", points[0].Time.UnixMilli())
	}
}

func TestAPIKeyHeaderSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-cg-demo-api-key"); got != "demo-key" {
			t.Errorf("api key header = %q, want demo-key", got)
		}
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithAPIKey("demo-key"))
	if _, err := client.GetMarketAssets(context.Background(), 5); err != nil {
		t.Fatalf("GetMarketAssets returned error: %v", err)
	}
}
