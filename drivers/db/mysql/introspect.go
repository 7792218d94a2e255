package mysql

import "fmt"

// introspect lists the columns of table in database, or in the current
// schema when database is empty.
func introspect(database, table string) string {
	schema := "DATABASE()"
	if database != "" {
		schema = "'" + database + "'"
	}
	return fmt.Sprintf("SELECT COLUMN_NAME FROM information_schema.columns WHERE table_schema = %s AND table_name = '%s' ORDER BY ORDINAL_POSITION",
		schema, table)
}
