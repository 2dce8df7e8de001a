package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jbandes/spacepod-go/internal/api"
	"github.com/jbandes/spacepod-go/internal/core"
	"github.com/jbandes/spacepod-go/internal/entry"
)

// fakeClient is an in-memory APIClient recording calls and serving canned
// entries and image bytes.
type fakeClient struct {
	mu            sync.Mutex
	entries       []entry.RawEntry
	err           error
	imageData     []byte
	fetchCalls    int
	downloadCalls int
	downloadURLs  []string

	// gate, when non-nil, blocks LatestEntries until closed.
	gate chan struct{}
}

func (f *fakeClient) LatestEntries(_ context.Context, _ core.YearMonthDay) ([]entry.RawEntry, error) {
	f.mu.Lock()
	f.fetchCalls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func (f *fakeClient) DownloadAsset(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.downloadCalls++
	f.downloadURLs = append(f.downloadURLs, url)
	data := f.imageData
	f.mu.Unlock()

	tmp, err := os.CreateTemp("", "fake-download-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}

func (f *fakeClient) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func newTestManager(t *testing.T, client *fakeClient) (*Manager, *Store) {
	t.Helper()
	store := newTestStore(t)
	m := NewManager(client, nil, store, core.DefaultCheckInterval, zerolog.Nop())
	m.now = testNow
	return m, store
}

func rawImageEntry(date string) entry.RawEntry {
	return entry.RawEntry{
		Date:      date,
		URL:       "https://example.com/" + date + ".jpg",
		MediaType: "image",
		Title:     "entry " + date,
	}
}

func TestManagerCacheHitTodayNoNetwork(t *testing.T) {
	client := &fakeClient{}
	m, s := newTestManager(t, client)

	// Today's entry is already cached.
	cached := mustWrite(t, s, "2020-09-23")

	got, err := m.LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if got.Date != cached.Date {
		t.Errorf("got %s, want %s", got.Date, cached.Date)
	}
	if client.fetches() != 0 {
		t.Errorf("made %d network fetches, want 0", client.fetches())
	}
}

func TestManagerServesYesterdayWithinCheckInterval(t *testing.T) {
	client := &fakeClient{}
	m, s := newTestManager(t, client)

	// Yesterday's entry, last checked just now: the next day has begun
	// but the poll interval has not elapsed, so the cache is served.
	mustWrite(t, s, "2020-09-22")

	got, err := m.LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if got.Date.String() != "2020-09-22" {
		t.Errorf("got %s, want cached 2020-09-22", got.Date)
	}
	if client.fetches() != 0 {
		t.Errorf("made %d network fetches, want 0", client.fetches())
	}
}

func TestManagerFetchesWhenStale(t *testing.T) {
	client := &fakeClient{
		entries:   []entry.RawEntry{rawImageEntry("2020-09-22"), rawImageEntry("2020-09-23")},
		imageData: pngFixture(t),
	}
	m, s := newTestManager(t, client)

	// Yesterday's entry with a last check older than the poll interval.
	s.now = func() time.Time { return testNow().Add(-2 * time.Hour) }
	mustWrite(t, s, "2020-09-22")
	s.now = testNow

	got, err := m.LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	// The last element of the response wins.
	if got.Date.String() != "2020-09-23" {
		t.Errorf("got %s, want 2020-09-23", got.Date)
	}
	if client.fetches() != 1 {
		t.Errorf("made %d network fetches, want 1", client.fetches())
	}

	meta, img := s.entryFiles("2020-09-23")
	if !meta || !img {
		t.Errorf("new entry not fully persisted: metadata=%v image=%v", meta, img)
	}
	if last, ok, _ := s.LastChecked(); !ok || !last.Equal(testNow()) {
		t.Errorf("last-checked not stamped: %v %v", last, ok)
	}

	// A second call inside the poll interval serves the new entry with no
	// further network traffic.
	again, err := m.LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("second LoadLatest failed: %v", err)
	}
	if again.Date != got.Date {
		t.Errorf("second call got %s", again.Date)
	}
	if client.fetches() != 1 {
		t.Errorf("second call made a network fetch (total %d)", client.fetches())
	}
}

func TestManagerFetchesWhenCacheEmpty(t *testing.T) {
	client := &fakeClient{
		entries:   []entry.RawEntry{rawImageEntry("2020-09-23")},
		imageData: pngFixture(t),
	}
	m, s := newTestManager(t, client)

	got, err := m.LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if got.Title != "entry 2020-09-23" {
		t.Errorf("got %+v", got)
	}
	if meta, img := s.entryFiles("2020-09-23"); !meta || !img {
		t.Error("entry not persisted")
	}
}

func TestManagerInvalidImageLeavesStoreUntouched(t *testing.T) {
	client := &fakeClient{
		entries:   []entry.RawEntry{rawImageEntry("2020-09-23")},
		imageData: []byte("<html>this is not an image</html>"),
	}
	m, s := newTestManager(t, client)

	_, err := m.LoadLatest(context.Background())
	var invalid *entry.InvalidImageError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want *entry.InvalidImageError", err)
	}

	if meta, img := s.entryFiles("2020-09-23"); meta || img {
		t.Errorf("store modified despite invalid image: metadata=%v image=%v", meta, img)
	}
	if _, ok, _ := s.LastChecked(); ok {
		t.Error("last-checked stamped despite failed fetch")
	}
}

func TestManagerEmptyResponse(t *testing.T) {
	client := &fakeClient{err: api.ErrEmptyResponse}
	m, _ := newTestManager(t, client)

	_, err := m.LoadLatest(context.Background())
	if !errors.Is(err, api.ErrEmptyResponse) {
		t.Errorf("error = %v, want ErrEmptyResponse", err)
	}
}

func TestManagerServerErrorPropagates(t *testing.T) {
	client := &fakeClient{err: &api.ServerError{StatusCode: 500}}
	m, _ := newTestManager(t, client)

	_, err := m.LoadLatest(context.Background())
	var serverErr *api.ServerError
	if !errors.As(err, &serverErr) || serverErr.StatusCode != 500 {
		t.Errorf("error = %v, want *ServerError{500}", err)
	}
}

func TestManagerVideoEntryDownloadsThumbnail(t *testing.T) {
	client := &fakeClient{
		entries: []entry.RawEntry{{
			Date:      "2020-09-23",
			URL:       "https://www.youtube.com/embed/ltPAsp71rmI",
			MediaType: "video",
			Title:     "a video day",
		}},
		imageData: pngFixture(t),
	}
	m, s := newTestManager(t, client)

	got, err := m.LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if _, ok := got.Asset.(entry.YouTubeAsset); !ok {
		t.Errorf("Asset = %#v, want YouTubeAsset", got.Asset)
	}

	client.mu.Lock()
	urls := append([]string(nil), client.downloadURLs...)
	client.mu.Unlock()
	if len(urls) != 1 || urls[0] != "https://img.youtube.com/vi/ltPAsp71rmI/0.jpg" {
		t.Errorf("downloaded %v, want the deterministic thumbnail URL", urls)
	}
	if meta, img := s.entryFiles("2020-09-23"); !meta || !img {
		t.Error("video entry not persisted")
	}
}

func TestManagerUnsupportedAsset(t *testing.T) {
	client := &fakeClient{
		entries: []entry.RawEntry{{
			Date:      "2020-09-23",
			URL:       "https://example.com/watch/999",
			MediaType: "video",
		}},
	}
	m, s := newTestManager(t, client)

	_, err := m.LoadLatest(context.Background())
	if !errors.Is(err, entry.ErrUnsupportedAsset) {
		t.Errorf("error = %v, want ErrUnsupportedAsset", err)
	}
	if meta, img := s.entryFiles("2020-09-23"); meta || img {
		t.Error("store modified for unsupported asset")
	}
}

func TestManagerCoalescesConcurrentCalls(t *testing.T) {
	gate := make(chan struct{})
	client := &fakeClient{
		entries:   []entry.RawEntry{rawImageEntry("2020-09-23")},
		imageData: pngFixture(t),
		gate:      gate,
	}
	m, _ := newTestManager(t, client)

	const callers = 5
	results := make([]entry.Entry, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.LoadLatest(context.Background())
		}(i)
	}

	// Give every caller time to reach the in-flight fetch, then let the
	// single fetch proceed.
	time.Sleep(100 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if results[i].Date.String() != "2020-09-23" {
			t.Errorf("caller %d got %s", i, results[i].Date)
		}
	}
	if got := client.fetches(); got != 1 {
		t.Errorf("made %d network fetches, want 1 coalesced fetch", got)
	}
}
