package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var Files embed.FS

// GetFS returns the store schema migrations
func GetFS() fs.FS {
	return Files
}
