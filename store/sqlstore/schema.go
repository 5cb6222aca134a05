/*
schema.go - Initial schema deployment

PURPOSE:
  On first init the Dao probes for the (prefixed) permissions table. When
  absent, the dialect's bundled deploy script is loaded, cleaned (comment
  lines stripped), split on semicolons, prefix-rewritten, and executed
  statement by statement. A dialect without a bundled script cannot be
  deployed and fails with UnsupportedDialectError.
*/
package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/warp/permission-engine/data"
)

//go:embed deploy/*.sql
var deployScripts embed.FS

// InitializeTables deploys the schema if the permissions table is absent.
// Idempotent: a second call against a deployed database does nothing.
func (d *Dao) InitializeTables(ctx context.Context) error {
	present, err := d.hasTable(ctx, "{}permissions")
	if err != nil {
		return fmt.Errorf("probing for schema: %w", err)
	}
	if present {
		return nil
	}

	script, err := deployScripts.ReadFile("deploy/" + d.dialect.name + ".sql")
	if err != nil {
		return &data.UnsupportedDialectError{Dialect: d.dialect.name}
	}

	for _, statement := range splitStatements(string(script)) {
		if _, err := d.exec(ctx, statement); err != nil {
			return fmt.Errorf("deploying schema: %w: %v", data.ErrLoadFailure, err)
		}
	}
	return nil
}

// splitStatements strips comment lines and splits the script into
// individual statements on terminating semicolons.
func splitStatements(script string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(strings.TrimRight(line, " \t"), ";") {
			statement := strings.TrimSpace(current.String())
			current.Reset()
			statement = strings.TrimSuffix(statement, ";")
			if statement = strings.TrimSpace(statement); statement != "" {
				statements = append(statements, statement)
			}
		}
	}
	return statements
}

// hasTable probes catalog metadata for the given {}-prefixed table name.
func (d *Dao) hasTable(ctx context.Context, table string) (bool, error) {
	name := d.store.insertPrefix(table)
	rows, err := d.conn.QueryContext(ctx, d.dialect.hasTable, name)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}
