// Package model defines the data structures shared by the downloader.
//
// A TrackPack is a folder of tracks: either a real trackpack from the
// exchange, or the pseudo-pack holding the results of a search link.
//
//	pack := model.NewTrackPack(42, "Speed Pack", pathConfig)
//	track := model.NewTrack(pack, 123, "A01", trackConfig)
//	fmt.Println(track.Path) // <TrackpacksPath>/Speed Pack/Track_A01.Challenge.Gbx
//
// Available placeholders: {pack}, {id} in pack paths and {name}, {id},
// {pack} in track file names.
package model
