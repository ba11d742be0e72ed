package assets

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations
var FS embed.FS

// Migration is one embedded SQL file.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the *.sql files for dialect ("sqlite" or "postgres") in lexical order.
func Migrations(dialect string) ([]Migration, error) {
	root := "migrations/" + dialect
	var names []string
	if err := fs.WalkDir(FS, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			names = append(names, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, n := range names {
		b, err := FS.ReadFile(n)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: n, SQL: string(b)})
	}
	return out, nil
}
