// Package report renders crawl state for people.
//
// WriteStatus produces a Markdown summary of the stored checkpoint for the
// status command. Progress prints the console lines shown while a crawl is
// running, with thousands separators.
package report
