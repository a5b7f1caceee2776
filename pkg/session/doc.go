// Package session holds the user's editable state: the list of scrape
// classes and the training manifest shipped inside packed archives.
//
// A Session is passed explicitly to the wizard, the scraper and the packer.
// It can be saved to and loaded from a single JSON document:
//
//	{"scrape":{"classes":[{"name":"Class 1","query":"cat","folder":"cat"}]},
//	 "manifest":{"type":"image","version":"2.4.4","appdata":{...}}}
package session
