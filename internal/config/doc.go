// Package config provides the configuration of a league crawl. Values are
// layered from built-in defaults, a YAML file, a .env file and LEAGUECRAWL_*
// environment variables; command-line flags are applied on top by the CLI.
package config
