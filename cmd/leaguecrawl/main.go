// Package main provides the entry point for the leaguecrawl CLI.
//
// leaguecrawl discovers Sleeper fantasy leagues by walking the league/user
// graph from a seed league, checkpointing its progress to SQLite and
// optionally mirroring the checkpoint to S3.
//
// Usage:
//
//	leaguecrawl crawl
//	leaguecrawl status
//	leaguecrawl export -o ./out
//
// See --help for all available options.
package main

func main() {
	Execute()
}
