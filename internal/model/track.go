package model

import (
	"path/filepath"
	"strconv"
	"strings"

	ioutils "github.com/tmx-tools/tmx-downloader/internal/io"
)

// Track represents a single track returned by an exchange.
//
// The file path is computed when the track is created via NewTrack, from the
// pack folder and the TrackConfig file name format.
//
// Example:
//
//	cfg := &TrackConfig{FileNameFormat: "Track_{name}.Challenge.Gbx"}
//	track := NewTrack(pack, 123, "A01: Race", cfg)
//	// track.Path = "<pack.Path>/Track_A01_ Race.Challenge.Gbx"
type Track struct {
	// Pack is the pack (or search result set) the track belongs to.
	Pack *TrackPack

	// ID is the exchange's TrackId.
	ID int64

	// Name is the track name as reported by the exchange.
	Name string

	// Path is the local file the track is saved to.
	Path string
}

// TrackConfig holds track file naming settings.
//
// FileNameFormat supports the placeholders {name}, {id} and {pack}. Values
// are sanitized before substitution.
type TrackConfig struct {
	FileNameFormat string
}

// DefaultFileNameFormat matches the names the game expects for challenges.
const DefaultFileNameFormat = "Track_{name}.Challenge.Gbx"

// NewTrack creates a new Track with computed path.
func NewTrack(pack *TrackPack, id int64, name string, cfg *TrackConfig) *Track {
	track := &Track{
		Pack: pack,
		ID:   id,
		Name: name,
	}
	track.Path = filepath.Join(pack.Path, track.fileName(cfg))
	return track
}

// FileName returns the base name of the track's local file.
func (t *Track) FileName() string {
	return filepath.Base(t.Path)
}

// Disambiguate moves the track to a file name that includes its id, for a
// track whose name clashes with another track of the same pack. The id is
// appended to {name}, or prefixed when the format has no {name}.
func (t *Track) Disambiguate(cfg *TrackConfig) {
	id := strconv.FormatInt(t.ID, 10)
	format := fileNameFormat(cfg)
	if !strings.Contains(format, "{name}") {
		t.Path = filepath.Join(t.Pack.Path, id+"_"+t.fileName(cfg))
		return
	}
	t.Path = filepath.Join(t.Pack.Path, t.render(format, ioutils.SanitizeFileName(t.Name)+" ("+id+")"))
}

func (t *Track) fileName(cfg *TrackConfig) string {
	return t.render(fileNameFormat(cfg), ioutils.SanitizeFileName(t.Name))
}

func (t *Track) render(format, name string) string {
	r := strings.NewReplacer(
		"{name}", name,
		"{id}", strconv.FormatInt(t.ID, 10),
		"{pack}", ioutils.SanitizeFileName(t.Pack.Name),
	)
	return r.Replace(format)
}

func fileNameFormat(cfg *TrackConfig) string {
	if cfg != nil && cfg.FileNameFormat != "" {
		return cfg.FileNameFormat
	}
	return DefaultFileNameFormat
}
