package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/tmx-tools/tmx-downloader/internal/config"
	"github.com/tmx-tools/tmx-downloader/internal/http"
	ioutils "github.com/tmx-tools/tmx-downloader/internal/io"
	"github.com/tmx-tools/tmx-downloader/internal/model"
	"github.com/tmx-tools/tmx-downloader/internal/playlist"
	"github.com/tmx-tools/tmx-downloader/internal/tmx"
	"github.com/tmx-tools/tmx-downloader/internal/tmx/dto"
)

// ErrNoTracks is returned by Initialize when the search or pack is empty.
var ErrNoTracks = errors.New("no tracks found")

// ErrNotInitialized is returned by StartDownloads before a successful Initialize.
var ErrNotInitialized = errors.New("download manager not initialized")

// ErrUnrecognizedInput is returned by Initialize for input that is neither a
// trackpack id nor a search link.
var ErrUnrecognizedInput = errors.New("not a search link or trackpack id")

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Stats is a snapshot of download progress.
type Stats struct {
	Total         int
	Downloaded    int
	Skipped       int
	Failed        int
	ReceivedBytes int64
}

// Done is the number of tracks that have been handled, successfully or not.
func (s Stats) Done() int {
	return s.Downloaded + s.Skipped + s.Failed
}

// Manager resolves an input into a track list and downloads it.
type Manager struct {
	settings   *config.Settings
	httpClient *http.Client
	exchange   tmx.Exchange
	pathCfg    *model.PathConfig
	trackCfg   *model.TrackConfig
	playlist   *playlist.Creator

	pack *model.TrackPack

	receivedBytes   int64
	downloadedFiles int32
	skippedFiles    int32
	failedFiles     int32

	onProgress func(ProgressEvent)
	mu         sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient replaces the client built from the settings.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = c
	}
}

// NewManager creates a new download Manager. onProgress may be nil.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent), opts ...Option) *Manager {
	pathCfg := settings.ToPathConfig()

	m := &Manager{
		settings:   settings,
		httpClient: http.NewClient(http.WithTimeout(settings.Timeout())),
		pathCfg:    pathCfg,
		trackCfg:   settings.ToTrackConfig(),
		playlist:   playlist.NewCreator(pathCfg.PlaylistFormat),
		onProgress: onProgress,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ParsePackID reports whether input is a trackpack id rather than a link.
func ParsePackID(input string) (int64, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, false
	}
	for _, r := range input {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(input, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Initialize resolves input, a search link or a trackpack id, into the
// list of tracks to download. Track pages are fetched until the result set
// is exhausted or max_tracks is reached.
//
// A link without a query searches the whole exchange. Any other input that
// is not a link, a "query=" string or all digits is rejected.
func (m *Manager) Initialize(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return errors.New("no search link or trackpack id given")
	}
	packID, isPack := ParsePackID(input)
	if !isPack && !tmx.IsSearchLink(input) {
		return fmt.Errorf("%w: %q", ErrUnrecognizedInput, input)
	}

	ex, err := tmx.ResolveExchange(m.settings.Exchange)
	if err != nil {
		return err
	}
	m.exchange = ex

	var (
		req  *tmx.APIRequest
		pack *model.TrackPack
	)
	if isPack {
		name := m.fetchPackName(ctx, packID)
		pack = model.NewTrackPack(packID, name, m.pathCfg)
		req = ex.PackTracksRequest(packID)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Trackpack %d: %s", packID, name), Level: LevelInfo})
	} else {
		req, err = tmx.TranslateWith(input, ex)
		if err != nil {
			for _, line := range strings.Split(err.Error(), "\n") {
				m.progress(ProgressEvent{Message: "Ignoring filter: " + line, Level: LevelWarning})
			}
		}
		pack = model.NewSearchResults(m.pathCfg)
		m.exchange = exchangeOf(req, ex)
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Query: %s", req.URL()), Level: LevelVerbose})

	limit := m.settings.MaxTracks
	if m.settings.Shuffle {
		limit = 0
	}

	results, err := m.fetchAll(ctx, req, limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return ErrNoTracks
	}

	results = m.selectTracks(results)
	for _, jt := range results {
		pack.Tracks = append(pack.Tracks, jt.ToTrack(pack, m.trackCfg))
	}
	m.resolveDuplicatePaths(pack)

	m.mu.Lock()
	m.pack = pack
	m.mu.Unlock()

	m.progress(ProgressEvent{Message: fmt.Sprintf("Found %d tracks", len(pack.Tracks)), Level: LevelInfo})
	return nil
}

// exchangeOf returns the exchange whose API req targets. A search link
// for another known site overrides the configured exchange.
func exchangeOf(req *tmx.APIRequest, fallback tmx.Exchange) tmx.Exchange {
	base := strings.TrimSuffix(req.Endpoint, "/api/tracks")
	if base == fallback.BaseURL {
		return fallback
	}
	if ex, err := tmx.ResolveExchange(base); err == nil {
		return ex
	}
	return fallback
}

// resolveDuplicatePaths gives every track of pack its own file. A track whose
// file is already taken by an earlier track is saved under a name with its
// id. Paths are compared case-insensitively.
func (m *Manager) resolveDuplicatePaths(pack *model.TrackPack) {
	taken := make(map[string]bool, len(pack.Tracks))
	for _, track := range pack.Tracks {
		key := strings.ToLower(track.Path)
		if taken[key] {
			clash := track.FileName()
			track.Disambiguate(m.trackCfg)
			key = strings.ToLower(track.Path)
			m.progress(ProgressEvent{
				Message: fmt.Sprintf("Duplicate file name %s, saving track %d as %s", clash, track.ID, track.FileName()),
				Level:   LevelWarning,
			})
		}
		taken[key] = true
	}
}

// selectTracks applies shuffle and max_tracks.
func (m *Manager) selectTracks(results []dto.JSONTrack) []dto.JSONTrack {
	if m.settings.Shuffle {
		rand.Shuffle(len(results), func(i, j int) {
			results[i], results[j] = results[j], results[i]
		})
	}
	if m.settings.MaxTracks > 0 && len(results) > m.settings.MaxTracks {
		results = results[:m.settings.MaxTracks]
	}
	return results
}

// Pack returns the pack built by Initialize, or nil.
func (m *Manager) Pack() *model.TrackPack {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pack
}

// Exchange returns the exchange tracks are downloaded from.
func (m *Manager) Exchange() tmx.Exchange {
	return m.exchange
}

// StartDownloads downloads every track of the initialized pack. A failed
// track is reported and does not stop the others. Playlist and metadata
// files are written afterwards when enabled.
func (m *Manager) StartDownloads(ctx context.Context) error {
	pack := m.Pack()
	if pack == nil {
		return ErrNotInitialized
	}

	if err := ioutils.EnsureDir(pack.Path); err != nil {
		return fmt.Errorf("create %s: %w", pack.Path, err)
	}

	ok := make([]bool, len(pack.Tracks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, m.settings.MaxConcurrentDownloads))

	for i, track := range pack.Tracks {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			ok[i] = m.downloadTrack(gctx, track)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var saved []*model.Track
	for i, track := range pack.Tracks {
		if ok[i] {
			saved = append(saved, track)
		}
	}

	m.writeExtras(pack, saved)

	stats := m.GetProgress()
	if stats.Failed == 0 {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded %d tracks to %s", len(saved), pack.Path), Level: LevelSuccess})
	} else {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished with %d of %d tracks, %d failed", len(saved), stats.Total, stats.Failed), Level: LevelWarning})
	}
	return nil
}

// GetProgress returns current download progress.
func (m *Manager) GetProgress() Stats {
	total := 0
	if pack := m.Pack(); pack != nil {
		total = len(pack.Tracks)
	}
	return Stats{
		Total:         total,
		Downloaded:    int(atomic.LoadInt32(&m.downloadedFiles)),
		Skipped:       int(atomic.LoadInt32(&m.skippedFiles)),
		Failed:        int(atomic.LoadInt32(&m.failedFiles)),
		ReceivedBytes: atomic.LoadInt64(&m.receivedBytes),
	}
}

func (m *Manager) downloadTrack(ctx context.Context, track *model.Track) bool {
	if m.settings.SkipExisting {
		if info, err := os.Stat(track.Path); err == nil && info.Size() > 0 {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping existing: %s", track.FileName()), Level: LevelVerbose})
			atomic.AddInt32(&m.skippedFiles, 1)
			return true
		}
	}

	url := m.exchange.TrackFileURL(track.ID)
	err := m.withRetry(ctx, track.Name, func() error {
		var written int64
		err := m.httpClient.DownloadFile(ctx, url, track.Path, func(w, _ int64) {
			atomic.AddInt64(&m.receivedBytes, w-written)
			written = w
		})
		if err != nil {
			atomic.AddInt64(&m.receivedBytes, -written)
		}
		return err
	})
	if err != nil {
		if ctx.Err() == nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Failed to download %s: %v", track.Name, err), Level: LevelError})
		}
		atomic.AddInt32(&m.failedFiles, 1)
		return false
	}

	atomic.AddInt32(&m.downloadedFiles, 1)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", track.FileName()), Level: LevelVerbose})
	return true
}

// writeExtras writes the playlist of saved tracks and the metadata of
// every selected track. Failures are reported as warnings.
func (m *Manager) writeExtras(pack *model.TrackPack, saved []*model.Track) {
	if m.settings.CreatePlaylist && len(saved) > 0 {
		content, err := m.playlist.Create(pack, saved)
		if err == nil {
			err = ioutils.WriteFile(pack.PlaylistPath, content)
		}
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
		} else {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist %s", pack.PlaylistPath), Level: LevelSuccess})
		}
	}

	if m.settings.SaveMetadata {
		data, err := json.MarshalIndent(dto.FromTracks(pack.Tracks), "", "  ")
		if err == nil {
			err = ioutils.WriteFile(pack.MetadataPath, data)
		}
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error saving metadata: %v", err), Level: LevelWarning})
		} else {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Saved metadata %s", pack.MetadataPath), Level: LevelVerbose})
		}
	}
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
