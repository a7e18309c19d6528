// Package appfs embeds the static assets shipped with the binaries.
package appfs

import "embed"

// FS holds the email templates and the screen definitions.
//
//go:embed all:templates screens.yaml
var FS embed.FS

const (
	EmailTemplatesDir = "templates/email"
	ScreensFile       = "screens.yaml"
)
