package web

import "embed"

// FS contains the embedded status page.
//
//go:embed *.html
var FS embed.FS
