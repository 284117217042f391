// Package ioutils provides the file system helpers shared by the downloader:
// file and folder name sanitization, directory creation and file writes.
//
//	safe := ioutils.SanitizeFileName(`A/B: "C"`) // "A_B_ _C_"
//	err := ioutils.WriteFile(filepath.Join(dir, safe+".txt"), data)
package ioutils
