// Package configs provides the embedded configuration template for
// ragstore. Embedding at build time keeps the template available in
// every distribution, source builds and binary releases alike.
//
// The template is written by 'ragstore config init' to
// ~/.ragstore/config.yaml.
package configs

import _ "embed"

// ConfigTemplate is the annotated default configuration file.
//
//go:embed config.example.yaml
var ConfigTemplate string
