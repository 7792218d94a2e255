package postgres

import (
	"fmt"
	"strings"
)

// introspect lists the columns of table in the current schema. The name is
// folded to lower case like an unquoted identifier.
func introspect(_, table string) string {
	return fmt.Sprintf("SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = '%s' ORDER BY ordinal_position",
		strings.ToLower(table))
}
