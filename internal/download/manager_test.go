package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmx-tools/tmx-downloader/internal/config"
	"github.com/tmx-tools/tmx-downloader/internal/tmx"
	"github.com/tmx-tools/tmx-downloader/internal/tmx/dto"
)

// fakeExchange serves /api/tracks, /api/trackpacks and /trackgbx/{id}.
type fakeExchange struct {
	tracks     []dto.JSONTrack
	packName   string
	failIDs    map[int64]int // id -> status code
	pageHits   atomic.Int32
	fileHits   sync.Map // id -> *atomic.Int32
	cursors    []string
	cursorsMu  sync.Mutex
	pageStatus int
}

func (f *fakeExchange) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/tracks", func(w http.ResponseWriter, r *http.Request) {
		f.pageHits.Add(1)
		if f.pageStatus != 0 {
			w.WriteHeader(f.pageStatus)
			return
		}

		after := r.URL.Query().Get("after")
		f.cursorsMu.Lock()
		f.cursors = append(f.cursors, after)
		f.cursorsMu.Unlock()

		start := 0
		if after != "" {
			id, _ := strconv.ParseInt(after, 10, 64)
			for i, t := range f.tracks {
				if t.TrackID == id {
					start = i + 1
				}
			}
		}
		end := min(start+tmx.PageSize, len(f.tracks))

		page := dto.JSONTrackPage{Results: f.tracks[start:end], More: end < len(f.tracks)}
		json.NewEncoder(w).Encode(page)
	})

	mux.HandleFunc("GET /api/trackpacks", func(w http.ResponseWriter, r *http.Request) {
		page := dto.JSONPackPage{}
		if f.packName != "" {
			page.Results = []dto.JSONPack{{PackName: f.packName}}
		}
		json.NewEncoder(w).Encode(page)
	})

	mux.HandleFunc("GET /trackgbx/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		counter, _ := f.fileHits.LoadOrStore(id, new(atomic.Int32))
		counter.(*atomic.Int32).Add(1)

		if code, ok := f.failIDs[id]; ok {
			w.WriteHeader(code)
			return
		}
		fmt.Fprintf(w, "GBX-%d", id)
	})

	return mux
}

func (f *fakeExchange) hits(id int64) int32 {
	counter, ok := f.fileHits.Load(id)
	if !ok {
		return 0
	}
	return counter.(*atomic.Int32).Load()
}

func makeTracks(n int) []dto.JSONTrack {
	tracks := make([]dto.JSONTrack, n)
	for i := range tracks {
		tracks[i] = dto.JSONTrack{TrackID: int64(i + 1), TrackName: fmt.Sprintf("Track %d", i+1)}
	}
	return tracks
}

func newTestSettings(t *testing.T, srv *httptest.Server) *config.Settings {
	t.Helper()
	dir := t.TempDir()

	s := config.DefaultSettings()
	s.Exchange = srv.URL
	s.DownloadsPath = filepath.Join(dir, "downloads")
	s.TrackpacksPath = filepath.Join(dir, "packs", "{pack}")
	s.DownloadRetryCooldown = 0
	s.DownloadMaxRetries = 3
	return s
}

func searchLink(srv *httptest.Server, query string) string {
	return srv.URL + "/tracksearch?query=" + query
}

func TestManager_PaginationStopsOnShortPage(t *testing.T) {
	fake := &fakeExchange{tracks: makeTracks(tmx.PageSize + 5)}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	m := NewManager(newTestSettings(t, srv), nil)
	require.NoError(t, m.Initialize(context.Background(), searchLink(srv, "mood%3Aday")))

	assert.Len(t, m.Pack().Tracks, tmx.PageSize+5)
	assert.Equal(t, int32(2), fake.pageHits.Load())
	assert.Equal(t, []string{"", strconv.Itoa(tmx.PageSize)}, fake.cursors)
}

func TestManager_PaginationStopsOnEmptyPage(t *testing.T) {
	fake := &fakeExchange{tracks: makeTracks(tmx.PageSize)}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	m := NewManager(newTestSettings(t, srv), nil)
	require.NoError(t, m.Initialize(context.Background(), searchLink(srv, "")))

	assert.Len(t, m.Pack().Tracks, tmx.PageSize)
	assert.Equal(t, int32(2), fake.pageHits.Load())
}

func TestManager_MaxTracksStopsPaging(t *testing.T) {
	fake := &fakeExchange{tracks: makeTracks(2 * tmx.PageSize)}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	settings := newTestSettings(t, srv)
	settings.MaxTracks = 10

	m := NewManager(settings, nil)
	require.NoError(t, m.Initialize(context.Background(), searchLink(srv, "")))

	assert.Len(t, m.Pack().Tracks, 10)
	assert.Equal(t, int32(1), fake.pageHits.Load())
	assert.Equal(t, int64(1), m.Pack().Tracks[0].ID)
}

func TestManager_ShuffleFetchesEverything(t *testing.T) {
	fake := &fakeExchange{tracks: makeTracks(tmx.PageSize + 1)}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	settings := newTestSettings(t, srv)
	settings.MaxTracks = 5
	settings.Shuffle = true

	m := NewManager(settings, nil)
	require.NoError(t, m.Initialize(context.Background(), searchLink(srv, "")))

	assert.Len(t, m.Pack().Tracks, 5)
	assert.Equal(t, int32(2), fake.pageHits.Load())

	seen := map[int64]bool{}
	for _, track := range m.Pack().Tracks {
		assert.False(t, seen[track.ID], "duplicate track %d", track.ID)
		seen[track.ID] = true
	}
}

func TestManager_NoTracks(t *testing.T) {
	fake := &fakeExchange{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	m := NewManager(newTestSettings(t, srv), nil)
	err := m.Initialize(context.Background(), searchLink(srv, "author%3Anobody"))

	assert.ErrorIs(t, err, ErrNoTracks)
	assert.Nil(t, m.Pack())
}

func TestManager_PageRetriesExhausted(t *testing.T) {
	fake := &fakeExchange{pageStatus: http.StatusServiceUnavailable}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	var warnings atomic.Int32
	m := NewManager(newTestSettings(t, srv), func(e ProgressEvent) {
		if e.Level == LevelWarning {
			warnings.Add(1)
		}
	})
	err := m.Initialize(context.Background(), searchLink(srv, ""))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, int32(3), fake.pageHits.Load())
	assert.Equal(t, int32(2), warnings.Load())
}

func TestManager_PageNotRetriedOnClientError(t *testing.T) {
	fake := &fakeExchange{pageStatus: http.StatusBadRequest}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	m := NewManager(newTestSettings(t, srv), nil)
	err := m.Initialize(context.Background(), searchLink(srv, ""))

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRetriesExhausted))
	assert.Equal(t, int32(1), fake.pageHits.Load())
}

func TestManager_InvalidFilterIsAWarning(t *testing.T) {
	fake := &fakeExchange{tracks: makeTracks(2)}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	var messages []string
	m := NewManager(newTestSettings(t, srv), func(e ProgressEvent) {
		if e.Level == LevelWarning {
			messages = append(messages, e.Message)
		}
	})
	require.NoError(t, m.Initialize(context.Background(), searchLink(srv, "length%3Abad")))

	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "length:")
}

func TestManager_DownloadsSanitizedFiles(t *testing.T) {
	fake := &fakeExchange{tracks: []dto.JSONTrack{
		{TrackID: 11, TrackName: `A/B: "C"?`},
		{TrackID: 12, TrackName: "Plain"},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	settings := newTestSettings(t, srv)
	m := NewManager(settings, nil)
	require.NoError(t, m.Initialize(context.Background(), searchLink(srv, "")))
	require.NoError(t, m.StartDownloads(context.Background()))

	data, err := os.ReadFile(filepath.Join(settings.DownloadsPath, "Track_A_B_ _C__.Challenge.Gbx"))
	require.NoError(t, err)
	assert.Equal(t, "GBX-11", string(data))

	_, err = os.Stat(filepath.Join(settings.DownloadsPath, "Track_Plain.Challenge.Gbx"))
	assert.NoError(t, err)

	stats := m.GetProgress()
	assert.Equal(t, Stats{Total: 2, Downloaded: 2, ReceivedBytes: 12}, stats)
}

func TestManager_FailureDoesNotAbortBatch(t *testing.T) {
	fake := &fakeExchange{
		tracks:  makeTracks(3),
		failIDs: map[int64]int{2: http.StatusNotFound},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	settings := newTestSettings(t, srv)
	settings.CreatePlaylist = true

	var errorsSeen atomic.Int32
	m := NewManager(settings, func(e ProgressEvent) {
		if e.Level == LevelError {
			errorsSeen.Add(1)
		}
	})
	require.NoError(t, m.Initialize(context.Background(), searchLink(srv, "")))
	require.NoError(t, m.StartDownloads(context.Background()))

	stats := m.GetProgress()
	assert.Equal(t, 2, stats.Downloaded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 3, stats.Done())
	assert.Equal(t, int32(1), errorsSeen.Load())
	assert.Equal(t, int32(1), fake.hits(2), "404 must not be retried")

	playlist, err := os.ReadFile(m.Pack().PlaylistPath)
	require.NoError(t, err)
	assert.Equal(t, "Track_Track 1.Challenge.Gbx\nTrack_Track 3.Challenge.Gbx\n", string(playlist))
}

func TestManager_DownloadRetriesServerErrors(t *testing.T) {
	fake := &fakeExchange{
		tracks:  makeTracks(1),
		failIDs: map[int64]int{1: http.StatusInternalServerError},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	m := NewManager(newTestSettings(t, srv), nil)
	require.NoError(t, m.Initialize(context.Background(), searchLink(srv, "")))
	require.NoError(t, m.StartDownloads(context.Background()))

	assert.Equal(t, int32(3), fake.hits(1))
	assert.Equal(t, 1, m.GetProgress().Failed)

	_, err := os.Stat(m.Pack().Tracks[0].Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestManager_SkipExisting(t *testing.T) {
	fake := &fakeExchange{tracks: makeTracks(2)}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	settings := newTestSettings(t, srv)
	settings.SkipExisting = true

	m := NewManager(settings, nil)
	require.NoError(t, m.Initialize(context.Background(), searchLink(srv, "")))

	existing := m.Pack().Tracks[0].Path
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0755))
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0644))

	require.NoError(t, m.StartDownloads(context.Background()))

	assert.Equal(t, int32(0), fake.hits(1))
	assert.Equal(t, int32(1), fake.hits(2))

	stats := m.GetProgress()
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Downloaded)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestManager_Trackpack(t *testing.T) {
	fake := &fakeExchange{tracks: makeTracks(3), packName: "Speed: Pack"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	settings := newTestSettings(t, srv)
	settings.SaveMetadata = true
	settings.MaxConcurrentDownloads = 2

	m := NewManager(settings, nil)
	require.NoError(t, m.Initialize(context.Background(), "  42 "))

	pack := m.Pack()
	assert.Equal(t, int64(42), pack.ID)
	assert.Equal(t, "Speed: Pack", pack.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(settings.TrackpacksPath), "Speed_ Pack"), pack.Path)

	require.NoError(t, m.StartDownloads(context.Background()))
	assert.Equal(t, 3, m.GetProgress().Downloaded)

	data, err := os.ReadFile(pack.MetadataPath)
	require.NoError(t, err)

	var meta []dto.JSONTrack
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, fake.tracks, meta)
}

func TestManager_TrackpackNameFallback(t *testing.T) {
	fake := &fakeExchange{tracks: makeTracks(1)}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	m := NewManager(newTestSettings(t, srv), nil)
	require.NoError(t, m.Initialize(context.Background(), "7"))

	assert.Equal(t, "Trackpack_7", m.Pack().Name)
}

func TestManager_TrackpackZero(t *testing.T) {
	fake := &fakeExchange{tracks: makeTracks(2)}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	settings := newTestSettings(t, srv)
	m := NewManager(settings, nil)
	require.NoError(t, m.Initialize(context.Background(), "0"))

	pack := m.Pack()
	assert.False(t, pack.IsSearch())
	assert.Equal(t, int64(0), pack.ID)
	assert.Equal(t, "Trackpack_0", pack.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(settings.TrackpacksPath), "Trackpack_0"), pack.Path)
}

func TestManager_RejectsUnrecognizedInput(t *testing.T) {
	fake := &fakeExchange{tracks: makeTracks(3)}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	for _, input := range []string{"12a", "author:foo", "speed tracks", "-3"} {
		t.Run(input, func(t *testing.T) {
			m := NewManager(newTestSettings(t, srv), nil)
			err := m.Initialize(context.Background(), input)

			assert.ErrorIs(t, err, ErrUnrecognizedInput)
			assert.Nil(t, m.Pack())
		})
	}
	assert.Equal(t, int32(0), fake.pageHits.Load())
}

func TestManager_LinkWithoutQuerySearchesEverything(t *testing.T) {
	fake := &fakeExchange{tracks: makeTracks(3)}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	m := NewManager(newTestSettings(t, srv), nil)
	require.NoError(t, m.Initialize(context.Background(), srv.URL+"/tracksearch"))

	assert.True(t, m.Pack().IsSearch())
	assert.Len(t, m.Pack().Tracks, 3)
}

func TestManager_NearDuplicateNamesAllDownloaded(t *testing.T) {
	fake := &fakeExchange{tracks: []dto.JSONTrack{
		{TrackID: 1, TrackName: "Race"},
		{TrackID: 2, TrackName: "Race."},
		{TrackID: 3, TrackName: "A  B"},
		{TrackID: 4, TrackName: "A B"},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	settings := newTestSettings(t, srv)
	m := NewManager(settings, nil)
	require.NoError(t, m.Initialize(context.Background(), searchLink(srv, "")))
	require.NoError(t, m.StartDownloads(context.Background()))

	for id := int64(1); id <= 4; id++ {
		assert.Equal(t, int32(1), fake.hits(id), "track %d", id)
	}
	assert.Equal(t, Stats{Total: 4, Downloaded: 4, ReceivedBytes: 20}, m.GetProgress())

	entries, err := os.ReadDir(settings.DownloadsPath)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestManager_SameNameSavedUnderID(t *testing.T) {
	fake := &fakeExchange{tracks: []dto.JSONTrack{
		{TrackID: 1, TrackName: "Race"},
		{TrackID: 2, TrackName: "Race"},
		{TrackID: 3, TrackName: "race"},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	settings := newTestSettings(t, srv)
	var warnings []string
	m := NewManager(settings, func(e ProgressEvent) {
		if e.Level == LevelWarning {
			warnings = append(warnings, e.Message)
		}
	})
	require.NoError(t, m.Initialize(context.Background(), searchLink(srv, "")))

	tracks := m.Pack().Tracks
	assert.Equal(t, "Track_Race.Challenge.Gbx", tracks[0].FileName())
	assert.Equal(t, "Track_Race (2).Challenge.Gbx", tracks[1].FileName())
	assert.Equal(t, "Track_race (3).Challenge.Gbx", tracks[2].FileName())
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "Duplicate file name Track_Race.Challenge.Gbx")

	require.NoError(t, m.StartDownloads(context.Background()))
	stats := m.GetProgress()
	assert.Equal(t, 3, stats.Downloaded)
	assert.Equal(t, 0, stats.Skipped)

	data, err := os.ReadFile(tracks[1].Path)
	require.NoError(t, err)
	assert.Equal(t, "GBX-2", string(data))
}

func TestManager_StartBeforeInitialize(t *testing.T) {
	m := NewManager(config.DefaultSettings(), nil)
	assert.ErrorIs(t, m.StartDownloads(context.Background()), ErrNotInitialized)
}

func TestManager_CanceledContext(t *testing.T) {
	fake := &fakeExchange{tracks: makeTracks(1)}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewManager(newTestSettings(t, srv), nil)
	err := m.Initialize(ctx, searchLink(srv, ""))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePackID(t *testing.T) {
	tests := []struct {
		input  string
		want   int64
		wantOK bool
	}{
		{"42", 42, true},
		{" 7 ", 7, true},
		{"0", 0, true},
		{"-3", 0, false},
		{"12a", 0, false},
		{"https://tmnf.exchange/tracksearch?query=x", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParsePackID(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRetryDelay(t *testing.T) {
	m := NewManager(config.DefaultSettings(), nil)

	assert.InDelta(t, 0.2, m.retryDelay(0).Seconds(), 1e-9)
	assert.InDelta(t, 0.8, m.retryDelay(1).Seconds(), 1e-9)
	assert.InDelta(t, 3.2, m.retryDelay(2).Seconds(), 1e-9)
}
