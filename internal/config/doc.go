// Package config provides configuration structures and utilities for
// wikiscrape: command-line settings, the optional .wikiscrape YAML file
// with per-site request settings, and XDG paths.
package config
