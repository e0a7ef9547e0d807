// Package catalog fronts DynamoDB: the live table catalog the resolver
// validates against, and the key/value blacklist rows kept in the bot's own
// state table.
package catalog

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/pkg/errors"
)

// Store wraps a DynamoDB client. stateTable names the table holding the
// blacklist rows; the catalog itself is whatever ListTables returns.
type Store struct {
	db         *dynamodb.Client
	stateTable string
}

// New constructs a Store.
func New(db *dynamodb.Client, stateTable string) *Store {
	return &Store{db: db, stateTable: stateTable}
}

// Tables enumerates every table in the account's catalog. The API pages at
// 100 names; callers get the flattened list.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	var tables []string
	p := dynamodb.NewListTablesPaginator(s.db, &dynamodb.ListTablesInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "list tables page")
		}
		tables = append(tables, page.TableNames...)
	}
	return tables, nil
}
