// Package std embeds the standard library served under std@NAME imports.
package std

import "embed"

//go:embed *.functi
var FS embed.FS
