// Package migrations embeds SQL migration files.
package migrations

import (
	"embed"
	"fmt"
	"sort"
)

// AssocFS contains the migrations for the association store schema.
//
//go:embed assoc/*.sql
var AssocFS embed.FS

// AssocDir is the directory within AssocFS where migrations live.
const AssocDir = "assoc"

// Migration is one embedded SQL file, ready to execute.
type Migration struct {
	Name string
	SQL  string
}

// Assoc returns the association-store migrations in apply order (ascending
// file name). Every statement is idempotent (IF NOT EXISTS), so re-applying
// is safe.
func Assoc() ([]Migration, error) {
	entries, err := AssocFS.ReadDir(AssocDir)
	if err != nil {
		return nil, fmt.Errorf("migrations: read dir: %w", err)
	}
	out := make([]Migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, err := AssocFS.ReadFile(AssocDir + "/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("migrations: read %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Name: e.Name(), SQL: string(b)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
