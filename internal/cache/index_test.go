package cache

import (
	"testing"

	"github.com/jbandes/spacepod-go/internal/core"
	"github.com/jbandes/spacepod-go/internal/entry"
)

func indexEntry(t *testing.T, date string) entry.Entry {
	t.Helper()
	e, err := entry.FromRaw(entry.RawEntry{
		Date:      date,
		URL:       "https://example.com/" + date + ".jpg",
		MediaType: "image",
		Title:     "entry " + date,
	})
	if err != nil {
		t.Fatalf("failed to build entry for %s: %v", date, err)
	}
	return e
}

func TestIndexInsertAndLatest(t *testing.T) {
	ix := NewIndex()

	if _, ok := ix.Latest(); ok {
		t.Error("empty index reported a latest entry")
	}

	// Insert out of order; Latest must track the maximum key.
	for _, d := range []string{"2020-09-22", "2020-09-20", "2020-09-23", "2020-09-21"} {
		ix.Insert(indexEntry(t, d))
	}

	if ix.Len() != 4 {
		t.Fatalf("Len = %d, want 4", ix.Len())
	}

	latest, ok := ix.Latest()
	if !ok || latest.Date.String() != "2020-09-23" {
		t.Errorf("Latest = %v, %v", latest.Date, ok)
	}

	entries := ix.Entries()
	for i := 1; i < len(entries); i++ {
		if !entries[i-1].Date.Before(entries[i].Date) {
			t.Errorf("entries not sorted: %v before %v", entries[i-1].Date, entries[i].Date)
		}
	}
}

func TestIndexInsertReplacesSameKey(t *testing.T) {
	ix := NewIndex()
	ix.Insert(indexEntry(t, "2020-09-22"))

	replacement := indexEntry(t, "2020-09-22")
	replacement.Title = "replaced"
	ix.Insert(replacement)

	if ix.Len() != 1 {
		t.Fatalf("Len = %d, want 1", ix.Len())
	}
	got, ok := ix.Get(replacement.Date)
	if !ok || got.Title != "replaced" {
		t.Errorf("Get = %+v, %v", got, ok)
	}
}

func TestIndexGetMissing(t *testing.T) {
	ix := NewIndex()
	ix.Insert(indexEntry(t, "2020-09-22"))

	missing, _ := core.ParseYearMonthDay("2020-09-21")
	if _, ok := ix.Get(missing); ok {
		t.Error("Get returned an entry for a missing key")
	}
}
