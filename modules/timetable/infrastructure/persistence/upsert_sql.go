package persistence

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
)

// maxBindParams is the Postgres wire protocol limit on parameters per statement.
const maxBindParams = 65535

const targetAlias = "target"

func ident(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// rowsPerStatement is the largest row count whose parameters fit one statement.
func rowsPerStatement(d domain.TableDescriptor) int {
	n := maxBindParams / len(d.Columns)
	if n < 1 {
		return 1
	}
	return n
}

// upsertSQL renders a multi-row INSERT with the descriptor's conflict clause.
// The update branch is guarded so identical rows are not rewritten.
func upsertSQL(d domain.TableDescriptor, rows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(ident(d.Table))
	b.WriteString(" AS ")
	b.WriteString(targetAlias)
	b.WriteString(" (")
	for i, c := range d.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ident(c))
	}
	b.WriteString(") VALUES ")

	width := len(d.Columns)
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < width; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(r*width + c + 1))
		}
		b.WriteByte(')')
	}

	b.WriteString(" ON CONFLICT (")
	for i, c := range d.ConflictColumns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ident(c))
	}
	b.WriteString(") ")

	if d.Policy != domain.ConflictUpdate || len(d.MutableColumns) == 0 {
		b.WriteString("DO NOTHING")
		return b.String()
	}

	b.WriteString("DO UPDATE SET ")
	for i, c := range d.MutableColumns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ident(c))
		b.WriteString(" = EXCLUDED.")
		b.WriteString(ident(c))
	}
	if d.TouchColumn != "" {
		b.WriteString(", ")
		b.WriteString(ident(d.TouchColumn))
		b.WriteString(" = CURRENT_TIMESTAMP")
	}
	b.WriteString(" WHERE (")
	for i, c := range d.MutableColumns {
		if i > 0 {
			b.WriteString(" OR ")
		}
		b.WriteString(targetAlias)
		b.WriteByte('.')
		b.WriteString(ident(c))
		b.WriteString(" IS DISTINCT FROM EXCLUDED.")
		b.WriteString(ident(c))
	}
	b.WriteByte(')')
	return b.String()
}

// flatten copies rows into one argument slice.
func flatten(rows [][]any) []any {
	if len(rows) == 0 {
		return nil
	}
	args := make([]any, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		args = append(args, r...)
	}
	return args
}
