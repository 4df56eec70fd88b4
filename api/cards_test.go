package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/alfredlabs/zettel/internal/zettel"
)

func TestCardHandler_Create(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store, &fakeSuggester{})

	rec := doRequest(t, s, http.MethodPost, "/api/cards", `{"title":"Transformers intro","tags":["ai"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var resp CreateCardResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Card == nil || resp.Card.Title != "Transformers intro" {
		t.Errorf("unexpected card: %+v", resp.Card)
	}
	if resp.Review == nil || resp.Review.Stage != 1 {
		t.Errorf("first review missing from response: %+v", resp.Review)
	}
}

func TestCardHandler_Create_Validation(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeSuggester{})

	tests := []struct {
		name string
		body string
	}{
		{"empty title", `{"title":""}`},
		{"malformed json", `{"title":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/cards", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
				t.Fatalf("decoding error response: %v", err)
			}
			if errResp.Error != "validation_error" {
				t.Errorf("error kind = %q, want validation_error", errResp.Error)
			}
		})
	}
}

func TestCardHandler_Get(t *testing.T) {
	store := newFakeStore()
	card := store.addCard("existing")
	s := newTestServer(store, &fakeSuggester{})

	rec := doRequest(t, s, http.MethodGet, "/api/cards/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got zettel.Card
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.ID != card.ID || got.Title != "existing" {
		t.Errorf("got %+v", got)
	}
}

func TestCardHandler_Get_Errors(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeSuggester{})

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantKind string
	}{
		{"unknown id", "/api/cards/42", http.StatusNotFound, "not_found"},
		{"non-numeric id", "/api/cards/abc", http.StatusBadRequest, "validation_error"},
		{"zero id", "/api/cards/0", http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodGet, tt.path, "")
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
				t.Fatalf("decoding error response: %v", err)
			}
			if errResp.Error != tt.wantKind {
				t.Errorf("error kind = %q, want %q", errResp.Error, tt.wantKind)
			}
		})
	}
}

func TestCardHandler_List(t *testing.T) {
	store := newFakeStore()
	store.addCard("one")
	store.addCard("two")
	s := newTestServer(store, &fakeSuggester{})

	rec := doRequest(t, s, http.MethodGet, "/api/cards?limit=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Cards []*zettel.Card `json:"cards"`
		Total int            `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Total != 2 || len(resp.Cards) != 2 {
		t.Errorf("total = %d, cards = %d, want 2", resp.Total, len(resp.Cards))
	}
}

func TestCardHandler_List_ExcludesArchivedByDefault(t *testing.T) {
	store := newFakeStore()
	store.addCard("active")
	store.addCard("shelved")
	s := newTestServer(store, &fakeSuggester{})

	if rec := doRequest(t, s, http.MethodPost, "/api/cards/2/archive", ""); rec.Code != http.StatusOK {
		t.Fatalf("archive status = %d, want 200", rec.Code)
	}

	tests := []struct {
		name       string
		query      string
		wantTotal  int
		wantTitles []string
	}{
		{"default hides archived", "", 1, []string{"active"}},
		{"archived opt-in", "?status=archived", 1, []string{"shelved"}},
		{"all opt-in", "?status=all", 2, []string{"active", "shelved"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodGet, "/api/cards"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var resp struct {
				Cards []*zettel.Card `json:"cards"`
				Total int            `json:"total"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp.Total != tt.wantTotal {
				t.Fatalf("total = %d, want %d", resp.Total, tt.wantTotal)
			}
			for i, want := range tt.wantTitles {
				if resp.Cards[i].Title != want {
					t.Errorf("cards[%d].Title = %q, want %q", i, resp.Cards[i].Title, want)
				}
			}
		})
	}
}

func TestCardHandler_Update(t *testing.T) {
	store := newFakeStore()
	store.addCard("before")
	s := newTestServer(store, &fakeSuggester{})

	rec := doRequest(t, s, http.MethodPatch, "/api/cards/1", `{"title":"after","topic":"go"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var got zettel.Card
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Title != "after" || got.Topic != "go" {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestCardHandler_Archive(t *testing.T) {
	store := newFakeStore()
	store.addCard("to archive")
	s := newTestServer(store, &fakeSuggester{})

	rec := doRequest(t, s, http.MethodPost, "/api/cards/1/archive", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got zettel.Card
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Status != zettel.StatusArchived {
		t.Errorf("status = %q, want archived", got.Status)
	}
}

func TestParseIntParam_Clamping(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 50},
		{"limit=10", 10},
		{"limit=abc", 50},
		{"limit=0", 1},
		{"limit=9999", 500},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, "/api/cards?"+tt.query, nil)
		if got := parseIntParam(req, "limit", 50, 1, 500); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
