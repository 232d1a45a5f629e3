// Package migrations embeds the SQL schema so the seed command can prepare an
// empty database without files on disk.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed *.sql
var FS embed.FS

// Files returns the embedded schema files in apply order.
func Files() ([]string, error) {
	names, err := fs.Glob(FS, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the contents of an embedded schema file.
func Read(name string) ([]byte, error) {
	return FS.ReadFile(name)
}
