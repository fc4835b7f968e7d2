// Package configs holds the commented configuration templates written by
// 'travelrag config init'. They are embedded so every build carries them.
//
//   - project-config.example.yaml becomes .travelrag.yaml
//   - user-config.example.yaml becomes $XDG_CONFIG_HOME/travelrag/config.yaml
//
// Both must stay valid for config.Load and match the defaults in
// internal/config.
package configs

import _ "embed"

// ProjectConfigTemplate is the commented project configuration.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate []byte

// UserConfigTemplate is the commented user configuration.
//
//go:embed user-config.example.yaml
var UserConfigTemplate []byte
