package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestSniffFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want payloadFormat
	}{
		{"json object", `{"Orders": []}`, formatJSON},
		{"json with leading whitespace", "\n\t {}", formatJSON},
		{"html document", "<!DOCTYPE html><html></html>", formatHTML},
		{"bare table", "<table></table>", formatHTML},
		{"empty", "", formatUnknown},
		{"plain text", "hello", formatUnknown},
		{"json array is not a feed", `[1, 2]`, formatUnknown},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := sniffFormat([]byte(tt.in)); got != tt.want {
				t.Fatalf("sniffFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// JSON numbers must reach the classifier as the source literal: an integer
// column must not turn into "10.0" through a float64 round-trip.
func TestParseJSONPreservesNumericLiterals(t *testing.T) {
	t.Parallel()

	f, err := Parse([]byte(`{
		"Orders": [
			{"Qty": 10, "Price": 7.5, "Note": "x", "Flag": true, "Gone": null}
		]
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := Feed{
		"Orders": []Row{
			{"Qty": "10", "Price": "7.5", "Note": "x", "Flag": "true", "Gone": ""},
		},
	}
	if !reflect.DeepEqual(f, want) {
		t.Fatalf("Parse = %#v, want %#v", f, want)
	}
}

func TestParseJSONEmptyTable(t *testing.T) {
	t.Parallel()

	f, err := Parse([]byte(`{"Empty": []}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rows, ok := f["Empty"]
	if !ok {
		t.Fatal("table Empty missing from feed")
	}
	if len(rows) != 0 {
		t.Fatalf("Empty holds %d rows, want 0", len(rows))
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte("not a feed")); err == nil {
		t.Fatal("expected error for unrecognized payload")
	}
	if _, err := Parse([]byte(`{"Orders": "not-rows"}`)); err == nil {
		t.Fatal("expected error for malformed feed shape")
	}
}

func TestClientFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Orders": [{"Qty": "10"}]}`))
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL}
	f, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(f["Orders"]) != 1 || f["Orders"][0]["Qty"] != "10" {
		t.Fatalf("Fetch = %#v", f)
	}
}

func TestClientFetchRejectsErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL}
	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
