package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/lifecycled/internal/server"
)

func TestParseOrderArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "separate args",
			args: []string{"datasource", "messaging", "server"},
			want: []string{"datasource", "messaging", "server"},
		},
		{
			name: "comma list",
			args: []string{"datasource,messaging,server"},
			want: []string{"datasource", "messaging", "server"},
		},
		{
			name: "mixed",
			args: []string{"datasource,messaging", "server"},
			want: []string{"datasource", "messaging", "server"},
		},
		{
			name: "spaces and empty parts",
			args: []string{" datasource , ,server "},
			want: []string{"datasource", "server"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseOrderArgs(tt.args)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseOrderArgs(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestRunOrderGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/groups/order" {
			t.Errorf("path = %q, want /v1/groups/order", r.URL.Path)
		}
		json.NewEncoder(w).Encode(server.OrderResponse{Order: []string{"datasource", "server"}})
	}))
	defer srv.Close()

	oldURL := serverURL
	serverURL = srv.URL
	defer func() { serverURL = oldURL }()

	var out bytes.Buffer
	orderGetCmd.SetOut(&out)
	orderGetCmd.SetContext(context.Background())

	if err := orderGetCmd.RunE(orderGetCmd, nil); err != nil {
		t.Fatalf("order get failed: %v", err)
	}

	if got := strings.TrimSpace(out.String()); got != "datasource → server" {
		t.Errorf("output = %q, want %q", got, "datasource → server")
	}
}

func TestRunOrderSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", r.Method)
		}
		var req server.OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if !reflect.DeepEqual(req.Order, []string{"server", "datasource"}) {
			t.Errorf("requested order = %v", req.Order)
		}
		json.NewEncoder(w).Encode(server.OrderResponse{Order: req.Order})
	}))
	defer srv.Close()

	oldURL := serverURL
	serverURL = srv.URL
	defer func() { serverURL = oldURL }()

	var out bytes.Buffer
	orderSetCmd.SetOut(&out)
	orderSetCmd.SetContext(context.Background())

	if err := orderSetCmd.RunE(orderSetCmd, []string{"server,datasource"}); err != nil {
		t.Fatalf("order set failed: %v", err)
	}

	if !strings.Contains(out.String(), "Order updated: server → datasource") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunOrderSet_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"duplicate group name \"server\""}`))
	}))
	defer srv.Close()

	oldURL := serverURL
	serverURL = srv.URL
	defer func() { serverURL = oldURL }()

	orderSetCmd.SetContext(context.Background())

	err := orderSetCmd.RunE(orderSetCmd, []string{"server", "server"})
	if err == nil {
		t.Fatal("expected error for duplicate group names")
	}
	if !strings.Contains(err.Error(), "duplicate group name") {
		t.Errorf("error = %v, want it to mention the duplicate", err)
	}
}
