package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateSavesImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sdapi/v1/txt2img" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"images": []string{base64.StdEncoding.EncodeToString(png)},
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(srv.URL, "", dir)

	name, err := c.Generate(context.Background(), "neon city at night")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read saved image: %v", err)
	}
	if string(data) != string(png) {
		t.Errorf("saved image bytes differ")
	}
}

func TestGenerateNoImageIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"images": []string{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", t.TempDir())
	if _, err := c.Generate(context.Background(), "anything"); err == nil {
		t.Error("Generate should fail when the API returns no image")
	}
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", t.TempDir())
	if _, err := c.Generate(context.Background(), "anything"); err == nil {
		t.Error("Generate should surface API errors")
	}
}
