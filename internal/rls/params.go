package rls

import (
	"strconv"
	"strings"
)

// numberParams converts ? placeholders to ordinal $1..$N parameters. The
// rewriter parses statements with a Postgres-dialect parser, which rejects
// bare ? markers; SQLite binds $N parameters by position, so the argument
// order is unchanged. Markers inside single-quoted string constants are
// left alone.
func numberParams(sqlStr string) string {
	if !strings.Contains(sqlStr, "?") {
		return sqlStr
	}

	var b strings.Builder
	b.Grow(len(sqlStr) + 8)

	n := 0
	inString := false
	for i := 0; i < len(sqlStr); i++ {
		c := sqlStr[i]
		switch {
		case c == '\'':
			inString = !inString
			b.WriteByte(c)
		case c == '?' && !inString:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
