package search

import (
	"fmt"
	"strings"
	"testing"

	"github.com/torahstudy/limud/core/torah"
)

func flatPasuk(id, sefer, parsha, perek, num int, text string) torah.FlatPasuk {
	return torah.FlatPasuk{
		ID:       id,
		Sefer:    sefer,
		ParshaID: parsha,
		Perek:    perek,
		PasukNum: num,
		Text:     text,
	}
}

func testCorpus() []torah.FlatPasuk {
	withCommentary := flatPasuk(3, torah.Shemot, 1, 1, 1, "ויאמר משה")
	withCommentary.Content = []torah.Content{{
		ID:    1,
		Title: "עיון",
		Questions: []torah.Question{{
			ID:   1,
			Text: "מדוע נאמר אור כאן",
			Perushim: []torah.Perush{
				{ID: 1, Mefaresh: "רש\"י", Text: "אור ראשון"},
				{ID: 2, Mefaresh: "רמב\"ן", Text: "אור שני"},
			},
		}},
	}}
	return []torah.FlatPasuk{
		flatPasuk(1, torah.Bereishit, 1, 1, 3, "ויהי אור גדול"),
		flatPasuk(2, torah.Bereishit, 2, 2, 1, "אור זרע ברכה"),
		withCommentary,
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	for _, query := range []string{"", "   ", "\t\n"} {
		results := Search(testCorpus(), query, Filters{})
		if results == nil {
			t.Fatalf("Search(%q) = nil, want empty slice", query)
		}
		if len(results) != 0 {
			t.Errorf("Search(%q) = %d results, want 0", query, len(results))
		}
	}
}

func TestSearchScoring(t *testing.T) {
	// "אור גדול" as a full phrase beats single-word matches.
	results := Search(testCorpus(), "אור גדול", Filters{Scope: ScopePasuk})
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	// Pasuk 1 contains the full phrase and both words; pasuk 2 only "אור".
	if results[0].ID != 1 || results[1].ID != 2 {
		t.Errorf("order = [%d %d], want [1 2]", results[0].ID, results[1].ID)
	}
}

func TestScoreText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		want  int
	}{
		{"no match", "דבר אחר", "אור", 0},
		{"single word mid-text", "ויהי אור", "אור", 15},          // 10 + 5
		{"single word at start", "אור זרע", "אור", 17},           // 10 + 5 + 2
		{"phrase plus both words", "אור גדול שם", "אור גדול", 22}, // 10 + 5 + 2 + 5
		{"words only, no phrase", "גדול היה האור שם", "אור גדול", 12}, // 5 + 5 + 2 start bonus
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words := strings.Fields(tt.query)
			if got := scoreText(tt.text, tt.query, words); got != tt.want {
				t.Errorf("scoreText(%q, %q) = %d, want %d", tt.text, tt.query, got, tt.want)
			}
		})
	}
}

func TestSearchDeterministic(t *testing.T) {
	corpus := testCorpus()
	first := Search(corpus, "אור", Filters{})
	second := Search(corpus, "אור", Filters{})
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("result %d: %d vs %d", i, first[i].ID, second[i].ID)
		}
	}
}

func TestSearchFilters(t *testing.T) {
	corpus := testCorpus()
	tests := []struct {
		name    string
		filters Filters
		wantIDs []int
	}{
		{"sefer", Filters{Sefer: torah.Bereishit}, []int{1, 2}},
		{"parsha", Filters{Parsha: 2}, []int{2}},
		{"perek", Filters{Perek: 1}, []int{1, 3}},
		{"sefer and perek", Filters{Sefer: torah.Bereishit, Perek: 2}, []int{2}},
		{"excluding sefer", Filters{Sefer: torah.Devarim}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := Search(corpus, "אור", tt.filters)
			if len(results) != len(tt.wantIDs) {
				t.Fatalf("got %d results, want %d", len(results), len(tt.wantIDs))
			}
			got := map[int]bool{}
			for _, r := range results {
				got[r.ID] = true
			}
			for _, id := range tt.wantIDs {
				if !got[id] {
					t.Errorf("missing pasuk %d in results", id)
				}
			}
		})
	}
}

func TestSearchScopes(t *testing.T) {
	corpus := testCorpus()

	// ScopePasuk must not see commentary text.
	results := Search(corpus, "אור", Filters{Scope: ScopePasuk})
	for _, r := range results {
		if r.ID == 3 {
			t.Error("pasuk scope matched commentary-only pasuk")
		}
	}

	// ScopeQuestion sees only the question text.
	results = Search(corpus, "אור", Filters{Scope: ScopeQuestion})
	if len(results) != 1 || results[0].ID != 3 {
		t.Errorf("question scope results = %v", ids(results))
	}

	// ScopePerush sees only perushim.
	results = Search(corpus, "ראשון", Filters{Scope: ScopePerush})
	if len(results) != 1 || results[0].ID != 3 {
		t.Errorf("perush scope results = %v", ids(results))
	}

	// Default (empty) scope behaves as ScopeAll.
	all := Search(corpus, "אור", Filters{})
	if len(all) != 3 {
		t.Errorf("default scope results = %v, want all three", ids(all))
	}
}

func TestSearchMefareshFilter(t *testing.T) {
	corpus := testCorpus()

	results := Search(corpus, "שני", Filters{Scope: ScopePerush, Mefaresh: "רמב\"ן"})
	if len(results) != 1 || results[0].ID != 3 {
		t.Fatalf("results = %v", ids(results))
	}

	// The same query under the other mefaresh must not match.
	results = Search(corpus, "שני", Filters{Scope: ScopePerush, Mefaresh: "רש\"י"})
	if len(results) != 0 {
		t.Errorf("results = %v, want none", ids(results))
	}
}

func TestSearchResultBound(t *testing.T) {
	var corpus []torah.FlatPasuk
	for i := 0; i < MaxResults+25; i++ {
		corpus = append(corpus, flatPasuk(i+1, torah.Bereishit, 1, 1, i+1, "יש בעולם שלום"))
	}
	// One pasuk carries the full phrase and outscores the uniform rest.
	corpus = append(corpus, flatPasuk(999, torah.Bereishit, 1, 2, 1, "שלום עולם טוב"))

	results := Search(corpus, "שלום עולם", Filters{})
	if len(results) != MaxResults {
		t.Fatalf("len = %d, want %d", len(results), MaxResults)
	}
	if results[0].ID != 999 {
		t.Errorf("top result = %d, want the highest-scoring pasuk", results[0].ID)
	}
}

func TestSearchTiesKeepEncounterOrder(t *testing.T) {
	var corpus []torah.FlatPasuk
	for i := 0; i < 10; i++ {
		corpus = append(corpus, flatPasuk(i+1, torah.Bereishit, 1, 1, i+1, "מים רבים"))
	}
	results := Search(corpus, "מים", Filters{})
	for i, r := range results {
		if r.ID != i+1 {
			t.Fatalf("result %d has ID %d, want %d (encounter order)", i, r.ID, i+1)
		}
	}
}

func ids(results []torah.FlatPasuk) string {
	s := ""
	for _, r := range results {
		s += fmt.Sprintf("%d ", r.ID)
	}
	return s
}
