package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erazemk/invadmin/internal/model"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func setupTestServer(t *testing.T, status int, response string) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		json.NewDecoder(r.Body).Decode(&rec.body)
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return New(server.URL + "/"), &calls
}

func TestPurchaseDefaultsToVirtual(t *testing.T) {
	c, calls := setupTestServer(t, http.StatusOK, `{"id":7,"items":[],"deliveryAddress":"x","status":"PURCHASED"}`)
	ctx := context.Background()

	order, err := c.PurchaseOrder(ctx, 7, nil)
	if err != nil {
		t.Fatalf("PurchaseOrder: %v", err)
	}
	if order.Status != model.OrderStatusPurchased {
		t.Errorf("expected PURCHASED, got %q", order.Status)
	}

	if _, err := c.PurchaseOrder(ctx, 7, &PurchaseOptions{}); err != nil {
		t.Fatalf("PurchaseOrder: %v", err)
	}
	off := false
	if _, err := c.PurchaseOrder(ctx, 7, &PurchaseOptions{Virtual: &off}); err != nil {
		t.Fatalf("PurchaseOrder: %v", err)
	}

	want := []string{"virtual=true", "virtual=true", "virtual=false"}
	if len(*calls) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(*calls))
	}
	for i, call := range *calls {
		if call.method != http.MethodPost || call.path != "/api/orders/7/purchase" {
			t.Errorf("call %d: got %s %s", i, call.method, call.path)
		}
		if call.query != want[i] {
			t.Errorf("call %d: query %q, want %q", i, call.query, want[i])
		}
	}
}

func TestCreateItemSendsContract(t *testing.T) {
	c, calls := setupTestServer(t, http.StatusCreated, `{"id":1,"name":"Widget","quantity":10}`)

	item, err := c.CreateItem(context.Background(), model.Item{Name: "Widget", Quantity: 10})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.ItemID() != 1 {
		t.Errorf("expected id 1, got %d", item.ItemID())
	}

	call := (*calls)[0]
	if call.method != http.MethodPost || call.path != "/api/items" {
		t.Errorf("got %s %s", call.method, call.path)
	}
	if _, ok := call.body["id"]; ok {
		t.Error("unpersisted item must not send an id")
	}
	if call.body["name"] != "Widget" {
		t.Errorf("expected name Widget, got %v", call.body["name"])
	}
}

func TestOrderMethodsUseMatchingRoutes(t *testing.T) {
	c, calls := setupTestServer(t, http.StatusOK, `{"id":42,"items":[],"deliveryAddress":"x","status":"SAVED"}`)
	ctx := context.Background()
	req := model.OrderRequest{Items: []model.OrderItem{{ItemID: 1, Quantity: 2}}, DeliveryAddress: "x"}

	c.GetOrder(ctx, 42)
	c.UpdateOrder(ctx, 42, req)
	c.CreateOrder(ctx, req)
	c.UpdateItem(ctx, 3, model.Item{Name: "a"})
	c.GetItem(ctx, 3)
	c.DeleteItem(ctx, 3)

	want := []string{
		"GET /api/orders/42",
		"PUT /api/orders/42",
		"POST /api/orders",
		"PUT /api/items/3",
		"GET /api/items/3",
		"DELETE /api/items/3",
	}
	for i, call := range *calls {
		if got := call.method + " " + call.path; got != want[i] {
			t.Errorf("call %d: got %q, want %q", i, got, want[i])
		}
	}
}

func TestStatusErrorPropagates(t *testing.T) {
	c, _ := setupTestServer(t, http.StatusNotFound, `{"error":"Failed to fetch order"}`)

	_, err := c.GetOrder(context.Background(), 99)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusNotFound || se.Message != "Failed to fetch order" {
		t.Errorf("got %d %q", se.Code, se.Message)
	}
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := New(url).ListItems(context.Background())
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Error("transport failure must not be a StatusError")
	}
}

func TestWithHandlerServesInProcess(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":3,"name":"Bolt","quantity":2}`))
	})

	c := New("http://admin", WithTimeout(time.Second), WithHandler(h))
	item, err := c.CreateItem(context.Background(), model.Item{Name: "Bolt", Quantity: 2})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.ItemID() != 3 {
		t.Errorf("id = %d, want 3", item.ItemID())
	}
	if gotMethod != http.MethodPost || gotPath != "/api/items" {
		t.Errorf("got %s %s", gotMethod, gotPath)
	}
	if gotBody != `{"name":"Bolt","quantity":2}` {
		t.Errorf("body = %q", gotBody)
	}
	if c.http.Timeout != time.Second {
		t.Errorf("timeout = %v, want 1s", c.http.Timeout)
	}
}

func TestWithHandlerStatusError(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})

	_, err := New("http://admin", WithHandler(h)).ListOrders(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusBadGateway || se.Message != "" {
		t.Errorf("got %d %q, want 502 with empty message", se.Code, se.Message)
	}
}
