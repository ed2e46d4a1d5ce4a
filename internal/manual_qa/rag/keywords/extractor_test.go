package keywords

import (
	"reflect"
	"strings"
	"testing"
)

func TestDeterministicKeywordsRankedByFrequency(t *testing.T) {
	text := "engine engine engine filter filter coolant"
	d := NewDeterministic()
	got, err := d.Keywords(text)
	if err != nil {
		t.Fatalf("Keywords: %v", err)
	}
	want := []string{"engine", "filter", "coolant"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDeterministicKeywordsTieBrokenByFirstOccurrence(t *testing.T) {
	text := "brake clutch brake clutch pedal pedal"
	d := NewDeterministic()
	got, err := d.Keywords(text)
	if err != nil {
		t.Fatalf("Keywords: %v", err)
	}
	want := []string{"brake", "clutch", "pedal"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDeterministicKeywordsCappedAtTen(t *testing.T) {
	words := []string{
		"alpha", "bravo", "charlie", "delta", "echos", "foxtrot",
		"golfs", "hotel", "india", "juliet", "kilos", "limas",
	}
	d := NewDeterministic()
	got, err := d.Keywords(strings.Join(words, " "))
	if err != nil {
		t.Fatalf("Keywords: %v", err)
	}
	if len(got) != 10 {
		t.Errorf("got %d keywords, want 10", len(got))
	}
}

func TestDeterministicKeywordsFiltersStopwordsAndShortWords(t *testing.T) {
	text := "the and for oil engine maintenance"
	d := NewDeterministic()
	got, err := d.Keywords(text)
	if err != nil {
		t.Fatalf("Keywords: %v", err)
	}
	// "oil" is only three characters and keywords require more than three.
	want := []string{"engine", "maintenance"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDeterministicContentWordsKeepShorterWords(t *testing.T) {
	text := "Check the oil level"
	d := NewDeterministic()
	got, err := d.ContentWords(text)
	if err != nil {
		t.Fatalf("ContentWords: %v", err)
	}
	// Content words require more than two characters, so "oil" survives.
	want := []string{"check", "oil", "level"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDeterministicContentWordsDeduplicated(t *testing.T) {
	text := "oil Oil OIL filter"
	d := NewDeterministic()
	got, err := d.ContentWords(text)
	if err != nil {
		t.Fatalf("ContentWords: %v", err)
	}
	want := []string{"oil", "filter"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDeterministicIsReproducible(t *testing.T) {
	text := "Replace the engine oil and the oil filter every year. Use synthetic oil."
	d := NewDeterministic()
	first, err := d.Keywords(text)
	if err != nil {
		t.Fatalf("Keywords: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := d.Keywords(text)
		if err != nil {
			t.Fatalf("Keywords: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differed: %v vs %v", i, first, again)
		}
	}
}

func TestTaggerEmptyText(t *testing.T) {
	tagger := NewTagger()
	kws, err := tagger.Keywords("   ")
	if err != nil {
		t.Fatalf("Keywords: %v", err)
	}
	if len(kws) != 0 {
		t.Errorf("got %v for empty text", kws)
	}
	words, err := tagger.ContentWords("")
	if err != nil {
		t.Fatalf("ContentWords: %v", err)
	}
	if len(words) != 0 {
		t.Errorf("got %v for empty text", words)
	}
}

func TestTaggerKeywordsAreNounsAndVerbs(t *testing.T) {
	tagger := NewTagger()
	kws, err := tagger.Keywords("Replace the engine coolant before winter arrives.")
	if err != nil {
		t.Fatalf("Keywords: %v", err)
	}
	if len(kws) == 0 {
		t.Fatal("expected keywords from a normal sentence")
	}
	got := make(map[string]struct{}, len(kws))
	for _, k := range kws {
		if k != strings.ToLower(k) {
			t.Errorf("keyword %q is not lower-cased", k)
		}
		got[k] = struct{}{}
	}
	// Nouns like these must survive POS filtering.
	for _, want := range []string{"engine", "coolant"} {
		if _, ok := got[want]; !ok {
			t.Errorf("missing expected keyword %q in %v", want, kws)
		}
	}
}
