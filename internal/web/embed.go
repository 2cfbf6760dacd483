// Package web embeds the single-page karaoke UI.
package web

import _ "embed"

//go:embed index.html
var IndexHTML []byte
