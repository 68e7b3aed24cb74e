package flashcards

import "testing"

func TestSourceValid(t *testing.T) {
	for _, s := range []Source{SourceManual, SourceAIFull, SourceAIEdited} {
		if !s.Valid() {
			t.Fatalf("%q should be valid", s)
		}
	}
	if Source("ai").Valid() {
		t.Fatalf("unexpected valid source")
	}
}

func TestListParamsDefaults(t *testing.T) {
	p := ListParams{}.WithDefaults()
	if p.Page != 1 || p.Limit != 10 || p.SortBy != SortCreatedAt || p.Order != "desc" {
		t.Fatalf("unexpected defaults %+v", p)
	}
	p = ListParams{Page: 3, Limit: 50, SortBy: SortFront, Order: "asc"}.WithDefaults()
	if p.Page != 3 || p.Limit != 50 || p.SortBy != SortFront || p.Order != "asc" {
		t.Fatalf("explicit params overwritten %+v", p)
	}
}
