// Package appfs embeds the static assets shipped with the binaries:
// SQL migrations, email templates and the common passwords list.
package appfs

import "embed"

//go:embed migrations/*.sql passwords/*.txt all:templates
var FS embed.FS
