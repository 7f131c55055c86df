package linkextract

import (
	"strings"
	"testing"
)

func TestInternal_BasicForms(t *testing.T) {
	body := "See [[Other Note]] and [[projects/plan|the plan]]."

	refs := Internal(body)
	if len(refs) != 2 {
		t.Fatalf("len(refs) = %d, want 2", len(refs))
	}

	if refs[0].Target != "Other Note" || refs[0].Display != "Other Note" {
		t.Errorf("refs[0] = %+v, want target and display %q", refs[0], "Other Note")
	}
	if refs[1].Target != "projects/plan" || refs[1].Display != "the plan" {
		t.Errorf("refs[1] = %+v, want target %q display %q", refs[1], "projects/plan", "the plan")
	}
	if refs[0].Position != strings.Index(body, "[[Other") {
		t.Errorf("refs[0].Position = %d, want %d", refs[0].Position, strings.Index(body, "[[Other"))
	}
}

func TestInternal_IgnoresEmptyAndMalformed(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{"[[]]", 0},
		{"[[ ]]", 0},
		{"[not a wiki link]", 0},
		{"[[unclosed", 0},
		{"text [[a]] [[b]] text", 2},
	}

	for _, tt := range tests {
		if got := len(Internal(tt.body)); got != tt.want {
			t.Errorf("Internal(%q) returned %d refs, want %d", tt.body, got, tt.want)
		}
	}
}

func TestInternal_RepeatedTargetsAllReported(t *testing.T) {
	body := "[[Same]] then [[Same]] again"
	refs := Internal(body)
	if len(refs) != 2 {
		t.Fatalf("len(refs) = %d, want 2 (no dedup at extraction)", len(refs))
	}
	if refs[0].Position == refs[1].Position {
		t.Error("both occurrences share a position")
	}
}

func TestExternal_MarkdownLinksAndImages(t *testing.T) {
	body := "A [site](https://example.com/a) and ![img](https://example.com/i.png)."

	// Each markdown link fires the link pattern and its URL also fires the
	// bare-URL pattern: four occurrences, none suppressed.
	refs := External(body)
	if len(refs) != 4 {
		t.Fatalf("len(refs) = %d, want 4", len(refs))
	}
	if refs[0].URL != "https://example.com/a" || refs[0].Label != "site" {
		t.Errorf("refs[0] = %+v", refs[0])
	}
	if refs[1].URL != "https://example.com/a" || refs[1].Label != "" {
		t.Errorf("refs[1] = %+v, want the bare-URL occurrence", refs[1])
	}
	if refs[2].URL != "https://example.com/i.png" || refs[2].Label != "img" {
		t.Errorf("refs[2] = %+v", refs[2])
	}
	if refs[3].URL != "https://example.com/i.png" || refs[3].Label != "" {
		t.Errorf("refs[3] = %+v, want the bare-URL occurrence", refs[3])
	}
}

func TestExternal_BareURLs(t *testing.T) {
	body := "Visit https://example.com/docs today. Also http://plain.test/x"

	refs := External(body)
	if len(refs) != 2 {
		t.Fatalf("len(refs) = %d, want 2", len(refs))
	}
	if refs[0].URL != "https://example.com/docs" {
		t.Errorf("refs[0].URL = %q, trailing punctuation should be trimmed", refs[0].URL)
	}
	if refs[0].Label != "" {
		t.Errorf("bare URL label = %q, want empty", refs[0].Label)
	}
}

func TestExternal_MarkdownAndBarePatternsOverlap(t *testing.T) {
	body := "[label](https://example.com/page)"

	// The markdown-link pattern and the bare-URL pattern overlap on the
	// same text; both fire.
	refs := External(body)
	if len(refs) != 2 {
		t.Fatalf("len(refs) = %d, want 2 (overlapping patterns both fire)", len(refs))
	}
	if refs[0].Label != "label" {
		t.Errorf("refs[0] = %+v, want the markdown occurrence first", refs[0])
	}
	if refs[1].Label != "" || refs[1].URL != "https://example.com/page" {
		t.Errorf("refs[1] = %+v, want the bare-URL occurrence", refs[1])
	}
}

func TestExternal_EveryOccurrenceReported(t *testing.T) {
	body := "https://dup.test/a then https://dup.test/a again"
	refs := External(body)
	if len(refs) != 2 {
		t.Fatalf("len(refs) = %d, want 2 (no dedup at extraction)", len(refs))
	}
	if refs[0].Position >= refs[1].Position {
		t.Error("refs not in document order")
	}
}

func TestOverlappingPatternsBothFire(t *testing.T) {
	body := "See [[Wiki Target]] beside [ext](https://example.com) and https://bare.test"

	internal := Internal(body)
	external := External(body)
	if len(internal) != 1 {
		t.Errorf("len(internal) = %d, want 1", len(internal))
	}
	// The markdown link contributes two occurrences (link pattern + bare
	// URL pattern), the trailing bare URL one more.
	if len(external) != 3 {
		t.Errorf("len(external) = %d, want 3", len(external))
	}
}
