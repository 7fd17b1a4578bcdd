// Package configs provides the embedded configuration template for notesearch.
//
// The template is written by `notesearch config init` to the user config
// location (see internal/config GetUserConfigPath). Edit config.example.yaml
// and rebuild to change it.
package configs

import _ "embed"

// UserConfigTemplate is the commented user configuration written by
// `notesearch config init`.
//
//go:embed config.example.yaml
var UserConfigTemplate string
