// Package config provides the downloader settings.
//
// Settings are read from a JSON or YAML file (by extension). A missing
// file yields DefaultSettings, and keys absent from the file keep their
// defaults:
//
//	settings, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    return err
//	}
//	settings.MaxTracks = 50
//	err = settings.Save("settings.yaml")
//
// The file path defaults to $TMX_DL_CONFIG, then to tmx-downloader/settings.json
// under the user config directory.
package config
