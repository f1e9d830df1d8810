package sqlstore

import (
	"fmt"
	"regexp"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name string

	bindvar func(n int) string
	// idText renders a content id column as text so it can be compared with
	// the varchar item_id column of the field values table.
	idText func(col string) string
	// noDate matches a publish_up value that counts as unset.
	noDate func(col string) string
	// returning is true when UPDATE ... RETURNING is available.
	returning bool
}

// Postgres is the PostgreSQL dialect ($n placeholders).
var Postgres = Dialect{
	Name:      "postgres",
	bindvar:   func(n int) string { return fmt.Sprintf("$%d", n) },
	idText:    func(col string) string { return "CAST(" + col + " AS TEXT)" },
	noDate:    func(col string) string { return col + " IS NULL" },
	returning: true,
}

// MySQL is the MySQL/MariaDB dialect (? placeholders).
var MySQL = Dialect{
	Name:    "mysql",
	bindvar: func(int) string { return "?" },
	idText:  func(col string) string { return "CAST(" + col + " AS CHAR)" },
	noDate: func(col string) string {
		return col + " IS NULL OR " + col + " = '" + zeroDateText + "'"
	},
}

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// ValidatePrefix rejects table prefixes that could not be spliced into SQL
// as a bare identifier.
func ValidatePrefix(prefix string) error {
	if !prefixPattern.MatchString(prefix) {
		return fmt.Errorf("invalid table prefix %q", prefix)
	}
	return nil
}

// schema resolves host table names for one dialect and prefix.
type schema struct {
	dialect Dialect
	prefix  string
}

func (s schema) content() string      { return s.prefix + "content" }
func (s schema) fields() string       { return s.prefix + "fields" }
func (s schema) fieldsValues() string { return s.prefix + "fields_values" }
func (s schema) extensions() string   { return s.prefix + "extensions" }
