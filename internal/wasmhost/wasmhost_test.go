package wasmhost

import "testing"

func TestParseResultsDecodesRuntimeOutput(t *testing.T) {
	stdout := []byte(`[{"docId":5,"score":12.5,"tier":"exact","title":"Doc Five","excerpt":"...","href":"/five","sectionId":"intro"}]`)
	results, err := parseResults(stdout)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.DocID != 5 || r.Score != 12.5 || r.Tier != "exact" || r.Href != "/five" || r.SectionID != "intro" {
		t.Errorf("got %+v", r)
	}
}

func TestParseResultsRejectsMalformedJSON(t *testing.T) {
	if _, err := parseResults([]byte("not json")); err == nil {
		t.Error("expected an error for malformed runtime output")
	}
}

func TestParseResultsEmptyArray(t *testing.T) {
	results, err := parseResults([]byte(`[]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}
