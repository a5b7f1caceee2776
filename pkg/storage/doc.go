// Package storage manages the on-disk scrape output.
//
// The output root holds one directory per class, named by the class's
// folder. Files inside are written atomically (temporary file plus
// rename) so a concurrent batch never leaves half-written images behind
// under their final names.
//
//	m, err := storage.NewManager("./out")
//	dir, err := m.ClassDir("cat")
//	n, err := m.SaveFile(dir, "0.jpg", body)
package storage
