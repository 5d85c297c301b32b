// Package configs embeds the configuration templates shipped with witcher.
//
// The project template is written by `witcher config init --project`.
// Keep it in step with config.NewConfig.
package configs

import _ "embed"

// ProjectConfigTemplate is the commented .witcher.yaml written next to a
// corpus.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
