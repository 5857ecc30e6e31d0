package sqlstore

import (
	"fmt"

	"github.com/blastrain/vitess-sqlparser/sqlparser"
	lru "github.com/hashicorp/golang-lru"
)

// statementGuard parses generated statements before they reach the database and remembers the
// ones that passed. Only queries and row writes are allowed.
type statementGuard struct {
	checked *lru.Cache
}

func newStatementGuard(size int) (*statementGuard, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create statement cache: %w", err)
	}
	return &statementGuard{checked: c}, nil
}

func (g *statementGuard) check(query string) error {
	if g.checked.Contains(query) {
		return nil
	}
	st, err := sqlparser.Parse(query)
	if err != nil {
		return fmt.Errorf("generated statement does not parse: %w", err)
	}
	switch st.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.Insert, *sqlparser.Delete:
	default:
		return fmt.Errorf("generated statement is a %T", st)
	}
	g.checked.Add(query, struct{}{})
	return nil
}
