// Package packer turns scraped class folders into a training archive.
//
// Pack decodes every file found in the class folders, center crops it to a
// square, encodes it as JPEG into a private staging directory under the
// name "{className}-!-{index}.jpg" and writes manifest.json last.
// ArchiveTo then zips the staging directory without compression. Dispose
// removes the staging directory and may be called more than once.
package packer
