// Package playlist writes the track lists saved next to downloaded tracks.
//
// Three formats are supported:
//   - txt: one file name per line
//   - csv: TrackId, TrackName and File columns
//   - matchsettings: a dedicated server MatchSettings file
//
// Example:
//
//	creator := playlist.NewCreator(model.PlaylistFormatCSV)
//	content, err := creator.Create(pack, downloaded)
//	if err != nil {
//	    return err
//	}
//	err = ioutils.WriteFile(pack.PlaylistPath, content)
package playlist
