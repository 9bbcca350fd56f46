package stylist

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientGenerate(t *testing.T) {
	source := []byte{0x89, 0x50, 0x4e, 0x47}
	result := []byte("composited-image")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		var payload generateRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if payload.Model != "atelier-tryon-1" {
			t.Fatalf("unexpected model: %s", payload.Model)
		}
		if payload.SourceImage != base64.StdEncoding.EncodeToString(source) {
			t.Fatalf("source image mismatch: %s", payload.SourceImage)
		}
		if len(payload.Garments) != 2 || payload.Garments[0] != "wearing a navy shirt" || payload.Garments[1] != "wearing grey trousers" {
			t.Fatalf("garment order not preserved: %+v", payload.Garments)
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Image: base64.StdEncoding.EncodeToString(result)})
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL})
	got, err := client.Generate(context.Background(), source, []string{"wearing a navy shirt", "wearing grey trousers"})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if string(got) != string(result) {
		t.Fatalf("unexpected image: %q", got)
	}
}

func TestClientGenerateUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(generateResponse{Code: "Capacity", Message: "model overloaded"})
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL})
	if _, err := client.Generate(context.Background(), []byte("img"), []string{"fragment"}); err == nil {
		t.Fatalf("expected error from upstream failure")
	}
}

func TestClientGenerateMissingKey(t *testing.T) {
	client := NewClient(Options{BaseURL: "https://stylist.example.com"})
	if _, err := client.Generate(context.Background(), []byte("img"), []string{"fragment"}); err == nil {
		t.Fatalf("expected error when api key missing")
	}
}

func TestClientGenerateEmptyResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{})
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL})
	if _, err := client.Generate(context.Background(), []byte("img"), []string{"fragment"}); err == nil {
		t.Fatalf("expected error on empty response")
	}
}
