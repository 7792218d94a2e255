package sqlite

import "fmt"

func introspect(_, table string) string {
	return fmt.Sprintf("SELECT name FROM pragma_table_info('%s') ORDER BY cid", table)
}
