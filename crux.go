// Package crux holds the filter specifications compiled into the binary.
package crux

import (
	"embed"
	"io/fs"
)

//go:embed filters
var EmbeddedFilters embed.FS

// Filters returns the embedded specification tree rooted at filters/.
func Filters() fs.FS {
	sub, err := fs.Sub(EmbeddedFilters, "filters")
	if err != nil {
		panic(err)
	}
	return sub
}
