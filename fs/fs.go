// Package appfs embeds the static assets shipped with the binary: database
// migrations, email templates and validation data.
package appfs

import "embed"

// The base layouts are named explicitly: embed skips _-prefixed files when
// matching directories.
//
//go:embed migrations templates assets
//go:embed templates/email/_base.txt templates/email/_base.gohtml
var FS embed.FS
