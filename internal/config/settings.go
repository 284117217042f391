package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tmx-tools/tmx-downloader/internal/model"
	"github.com/tmx-tools/tmx-downloader/internal/tmx"
)

// EnvConfigPath names the environment variable holding the settings file path.
const EnvConfigPath = "TMX_DL_CONFIG"

// Settings holds all configuration options.
type Settings struct {
	// Exchange is a site host (tmnf.exchange), a site URL or a custom base URL.
	Exchange string `json:"exchange" yaml:"exchange"`

	// Download settings
	DownloadsPath          string  `json:"downloads_path" yaml:"downloads_path"`
	TrackpacksPath         string  `json:"trackpacks_path" yaml:"trackpacks_path"`
	MaxTracks              int     `json:"max_tracks" yaml:"max_tracks"`
	Shuffle                bool    `json:"shuffle" yaml:"shuffle"`
	MaxConcurrentDownloads int     `json:"max_concurrent_downloads" yaml:"max_concurrent_downloads"`
	DownloadMaxRetries     int     `json:"download_max_retries" yaml:"download_max_retries"`
	DownloadRetryCooldown  float64 `json:"download_retry_cooldown" yaml:"download_retry_cooldown"`
	DownloadRetryExponent  float64 `json:"download_retry_exponent" yaml:"download_retry_exponent"`
	SkipExisting           bool    `json:"skip_existing" yaml:"skip_existing"`
	RequestTimeout         float64 `json:"request_timeout" yaml:"request_timeout"`

	// File naming
	FileNameFormat         string `json:"file_name_format" yaml:"file_name_format"`
	PlaylistFileNameFormat string `json:"playlist_file_name_format" yaml:"playlist_file_name_format"`

	// Playlist and metadata
	CreatePlaylist bool   `json:"create_playlist" yaml:"create_playlist"`
	PlaylistFormat string `json:"playlist_format" yaml:"playlist_format"` // txt, csv, matchsettings
	SaveMetadata   bool   `json:"save_metadata" yaml:"save_metadata"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		Exchange:               tmx.DefaultExchange.BaseURL,
		DownloadsPath:          filepath.Join(homeDir, "Downloads", "TMX-Downloads"),
		TrackpacksPath:         filepath.Join(homeDir, "Downloads", "TMX-Trackpacks", "{pack}"),
		MaxTracks:              0,
		Shuffle:                false,
		MaxConcurrentDownloads: 1,
		DownloadMaxRetries:     7,
		DownloadRetryCooldown:  0.2,
		DownloadRetryExponent:  4.0,
		SkipExisting:           true,
		RequestTimeout:         60,

		FileNameFormat:         model.DefaultFileNameFormat,
		PlaylistFileNameFormat: "{pack}",

		CreatePlaylist: false,
		PlaylistFormat: "txt",
		SaveMetadata:   false,
	}
}

// DefaultPath returns the settings file used when neither a flag nor
// TMX_DL_CONFIG names one.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "tmx-downloader.json"
	}
	return filepath.Join(dir, "tmx-downloader", "settings.json")
}

// Load reads settings from a JSON or YAML file, chosen by extension.
// A missing file yields the defaults; keys absent from the file keep
// their default values.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if isYAML(path) {
		err = yaml.Unmarshal(data, settings)
	} else {
		err = json.Unmarshal(data, settings)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to a JSON or YAML file, chosen by extension.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports every setting that cannot be used.
func (s *Settings) Validate() error {
	var errs []error
	if _, err := tmx.ResolveExchange(s.Exchange); err != nil {
		errs = append(errs, err)
	}
	if s.MaxTracks < 0 {
		errs = append(errs, fmt.Errorf("max_tracks must not be negative, got %d", s.MaxTracks))
	}
	if s.DownloadMaxRetries < 1 {
		errs = append(errs, fmt.Errorf("download_max_retries must be at least 1, got %d", s.DownloadMaxRetries))
	}
	if s.DownloadRetryCooldown < 0 {
		errs = append(errs, fmt.Errorf("download_retry_cooldown must not be negative, got %g", s.DownloadRetryCooldown))
	}
	if s.DownloadRetryExponent < 1 {
		errs = append(errs, fmt.Errorf("download_retry_exponent must be at least 1, got %g", s.DownloadRetryExponent))
	}
	if _, ok := model.ParsePlaylistFormat(s.PlaylistFormat); !ok {
		errs = append(errs, fmt.Errorf("unknown playlist_format %q", s.PlaylistFormat))
	}
	if !strings.Contains(s.FileNameFormat, "{name}") && !strings.Contains(s.FileNameFormat, "{id}") {
		errs = append(errs, fmt.Errorf("file_name_format %q needs {name} or {id}", s.FileNameFormat))
	}
	return errors.Join(errs...)
}

// Timeout returns RequestTimeout as a duration.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.RequestTimeout * float64(time.Second))
}

// ToPathConfig converts settings to PathConfig.
func (s *Settings) ToPathConfig() *model.PathConfig {
	pf, _ := model.ParsePlaylistFormat(s.PlaylistFormat)

	return &model.PathConfig{
		DownloadsPath:          ExpandHome(s.DownloadsPath),
		TrackpacksPath:         ExpandHome(s.TrackpacksPath),
		PlaylistFileNameFormat: s.PlaylistFileNameFormat,
		PlaylistFormat:         pf,
	}
}

// ToTrackConfig converts settings to TrackConfig.
func (s *Settings) ToTrackConfig() *model.TrackConfig {
	return &model.TrackConfig{
		FileNameFormat: s.FileNameFormat,
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// SetOutputFolder stores search results in dir and trackpacks in sub
// folders of dir named after the pack.
func (s *Settings) SetOutputFolder(dir string) {
	if dir == "" {
		return
	}
	s.DownloadsPath = dir
	s.TrackpacksPath = filepath.Join(dir, "{pack}")
}

// ParseTrackCount parses a track count answer: "all" or empty for no
// limit, otherwise a positive number.
func ParseTrackCount(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("track count must be a positive number or \"all\", got %q", s)
	}
	return n, nil
}
