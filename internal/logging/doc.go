// Package logging configures structured slog output for the witcher binary.
// Logs are JSON lines written to a size-rotated file under ~/.witcher/logs/,
// optionally mirrored to stderr. In MCP server mode stdout and stderr stay
// untouched because stdout carries the JSON-RPC stream.
package logging
