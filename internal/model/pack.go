package model

import (
	"path/filepath"
	"strconv"
	"strings"

	ioutils "github.com/tmx-tools/tmx-downloader/internal/io"
)

// SearchResultsName is the display name of the pseudo-pack that holds the
// results of a search link.
const SearchResultsName = "Search results"

// MetadataFileName is written next to the downloaded tracks when enabled.
const MetadataFileName = "tracks.json"

// TrackPack is a set of tracks that are saved to the same folder.
//
// A real trackpack is saved under PathConfig.TrackpacksPath. The results of a
// search link are represented as a TrackPack with ID 0 saved directly in
// PathConfig.DownloadsPath.
type TrackPack struct {
	// ID is the exchange's pack id. It is 0 for search results.
	ID int64

	// Name is the pack name.
	Name string

	// Tracks are the tracks selected for download, in output order.
	Tracks []*Track

	// Path is the folder the tracks are saved to.
	Path string

	// PlaylistPath is where the track list is written.
	PlaylistPath string

	// MetadataPath is where the JSON metadata is written.
	MetadataPath string

	search bool
}

// PathConfig holds the folder settings used to place packs on disk.
//
// TrackpacksPath supports the placeholders {pack} and {id}; when it contains
// neither, the sanitized pack name is appended as a sub folder.
//
//	cfg := &PathConfig{
//	    DownloadsPath:          "~/Downloads/TMX-Downloads",
//	    TrackpacksPath:         "~/Downloads/TMX-Trackpacks/{pack}",
//	    PlaylistFileNameFormat: "{pack}",
//	    PlaylistFormat:         PlaylistFormatTXT,
//	}
type PathConfig struct {
	DownloadsPath          string
	TrackpacksPath         string
	PlaylistFileNameFormat string
	PlaylistFormat         PlaylistFormat
}

// NewTrackPack creates a TrackPack for a real trackpack.
func NewTrackPack(id int64, name string, cfg *PathConfig) *TrackPack {
	pack := &TrackPack{ID: id, Name: name}
	pack.Path = pack.parseFolderPath(cfg)
	pack.setFilePaths(cfg)
	return pack
}

// NewSearchResults creates the pseudo-pack that holds search link results.
func NewSearchResults(cfg *PathConfig) *TrackPack {
	pack := &TrackPack{Name: SearchResultsName, Path: cfg.DownloadsPath, search: true}
	pack.setFilePaths(cfg)
	return pack
}

// IsSearch reports whether the pack holds search results rather than a
// real trackpack.
func (p *TrackPack) IsSearch() bool {
	return p.search
}

func (p *TrackPack) parseFolderPath(cfg *PathConfig) string {
	name := ioutils.SanitizeFolderName(p.Name)
	id := strconv.FormatInt(p.ID, 10)

	path := cfg.TrackpacksPath
	if !strings.Contains(path, "{pack}") && !strings.Contains(path, "{id}") {
		return filepath.Join(path, name)
	}
	path = strings.ReplaceAll(path, "{pack}", name)
	path = strings.ReplaceAll(path, "{id}", id)
	return filepath.Clean(path)
}

func (p *TrackPack) setFilePaths(cfg *PathConfig) {
	format := cfg.PlaylistFileNameFormat
	if format == "" {
		format = "{pack}"
	}
	fileName := strings.ReplaceAll(format, "{pack}", p.Name)
	fileName = strings.ReplaceAll(fileName, "{id}", strconv.FormatInt(p.ID, 10))
	fileName = ioutils.SanitizeFolderName(fileName)

	p.PlaylistPath = filepath.Join(p.Path, fileName+cfg.PlaylistFormat.Extension())
	p.MetadataPath = filepath.Join(p.Path, MetadataFileName)
}

// PlaylistFormat represents supported track list formats.
type PlaylistFormat int

const (
	// PlaylistFormatTXT writes one file name per line.
	PlaylistFormatTXT PlaylistFormat = iota

	// PlaylistFormatCSV writes TrackId, TrackName and File columns.
	PlaylistFormatCSV

	// PlaylistFormatMatchSettings writes a dedicated server match settings
	// file listing the challenges.
	PlaylistFormatMatchSettings
)

// Extension returns the file extension for the format, including the dot.
func (pf PlaylistFormat) Extension() string {
	switch pf {
	case PlaylistFormatCSV:
		return ".csv"
	case PlaylistFormatMatchSettings:
		return ".xml"
	default:
		return ".txt"
	}
}

// String returns the configuration name of the format.
func (pf PlaylistFormat) String() string {
	switch pf {
	case PlaylistFormatCSV:
		return "csv"
	case PlaylistFormatMatchSettings:
		return "matchsettings"
	default:
		return "txt"
	}
}

// ParsePlaylistFormat parses a configuration name. Unknown names fall back
// to PlaylistFormatTXT and report false.
func ParsePlaylistFormat(s string) (PlaylistFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "txt", "":
		return PlaylistFormatTXT, true
	case "csv":
		return PlaylistFormatCSV, true
	case "matchsettings", "xml":
		return PlaylistFormatMatchSettings, true
	default:
		return PlaylistFormatTXT, false
	}
}
