package query

import (
	"fmt"

	"github.com/atlekbai/collection_search/internal/schema"
)

// rowAlias is the alias used when materializing entity rows.
const rowAlias = "_e"

// QI is shorthand for schema.QuoteIdent.
func QI(name string) string { return schema.QuoteIdent(name) }

// ColumnRef returns the qualified SQL reference alias.column.
func ColumnRef(alias, column string) string {
	return fmt.Sprintf(`%s.%s`, QI(alias), QI(column))
}

// TableSource returns the FROM item for an entity under alias.
func TableSource(e *schema.Entity, alias string) string {
	return QI(e.Table) + " " + QI(alias)
}

// joinOn returns the ON clause linking from (under fromAlias) to the
// relation target (under toAlias).
func joinOn(from *schema.Entity, fromAlias string, rel *schema.Relation, to *schema.Entity, toAlias string) string {
	if rel.IsCollection() {
		return fmt.Sprintf(`%s = %s`, ColumnRef(toAlias, rel.Column), ColumnRef(fromAlias, from.PrimaryKey))
	}
	return fmt.Sprintf(`%s = %s`, ColumnRef(toAlias, to.PrimaryKey), ColumnRef(fromAlias, rel.Column))
}
