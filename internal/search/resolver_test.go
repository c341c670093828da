package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cinescout/searchbroker/internal/domain"
)

func TestResolvePersonTakesFirstResult(t *testing.T) {
	fetcher := &fakeFetcher{
		handle: func(path string, _ map[string]string) (json.RawMessage, error) {
			return json.RawMessage(`{"results":[{"id":6193,"name":"Leonardo DiCaprio"},{"id":999,"name":"Leonardo Someone"}]}`), nil
		},
	}
	svc := newTestService(fetcher)

	person, found, err := svc.resolvePerson(context.Background(), "Leonardo DiCaprio")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !found {
		t.Fatal("expected a match")
	}
	if person.ID != 6193 || person.Name != "Leonardo DiCaprio" {
		t.Fatalf("expected first upstream result, got %+v", person)
	}
}

func TestResolvePersonEmptyResultIsAbsent(t *testing.T) {
	fetcher := &fakeFetcher{
		handle: func(string, map[string]string) (json.RawMessage, error) {
			return json.RawMessage(`{"results":[]}`), nil
		},
	}
	svc := newTestService(fetcher)

	_, found, err := svc.resolvePerson(context.Background(), "Nobody Nowhere")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if found {
		t.Fatal("expected no match")
	}
}

func TestResolvePersonPropagatesUpstreamError(t *testing.T) {
	fetcher := &fakeFetcher{
		handle: func(string, map[string]string) (json.RawMessage, error) {
			return nil, domain.ErrUpstreamUnavailable
		},
	}
	svc := newTestService(fetcher)

	_, _, err := svc.resolvePerson(context.Background(), "Tom Cruise")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestResolvePersonTrimsAndFoldsName(t *testing.T) {
	fetcher := &fakeFetcher{
		handle: func(string, map[string]string) (json.RawMessage, error) {
			return json.RawMessage(`{"results":[{"id":2405,"name":"Penélope Cruz"}]}`), nil
		},
	}
	svc := newTestService(fetcher)

	if _, _, err := svc.resolvePerson(context.Background(), "  Penélope Cruz  "); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	calls := fetcher.callsTo("/search/person")
	if len(calls) != 1 {
		t.Fatalf("expected one person call, got %d", len(calls))
	}
	if got := calls[0].params["query"]; got != "Penelope Cruz" {
		t.Fatalf("expected trimmed, diacritic-folded query, got %q", got)
	}
}

func TestFoldName(t *testing.T) {
	cases := map[string]string{
		"  Amélie  ":      "Amelie",
		"François Ozon":   "Francois Ozon",
		"Plain Name":      "Plain Name",
		"Señora Martínez": "Senora Martinez",
	}
	for input, want := range cases {
		if got := foldName(input); got != want {
			t.Fatalf("foldName(%q) = %q, want %q", input, got, want)
		}
	}
}
