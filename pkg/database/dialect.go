package database

import (
	"fmt"
	"strings"
)

// Dialect names the SQL flavour, and doubles as the database/sql driver name.
type Dialect string

const (
	SQLite Dialect = "sqlite3"
	MySQL  Dialect = "mysql"
)

// LikeEscape is appended after every LIKE pattern that went through EscapeLike.
// MySQL already treats backslash as the LIKE escape and would reject '\' as a literal.
func (d Dialect) LikeEscape() string {
	if d == MySQL {
		return ""
	}
	return ` ESCAPE '\'`
}

// Upsert renders the conflict clause that updates cols when key already exists.
// touch lists columns set to CURRENT_TIMESTAMP on update.
func (d Dialect) Upsert(key string, cols []string, touch ...string) string {
	sets := make([]string, 0, len(cols)+len(touch))
	for _, c := range cols {
		if d == MySQL {
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", c, c))
		} else {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	for _, c := range touch {
		sets = append(sets, c+" = CURRENT_TIMESTAMP")
	}
	if d == MySQL {
		return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("ON CONFLICT(%s) DO UPDATE SET %s", key, strings.Join(sets, ", "))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike neutralises LIKE metacharacters in user input.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Placeholders returns "?, ?, ?" for n arguments.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
