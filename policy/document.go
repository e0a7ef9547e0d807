package policy

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// readActions is the action set every generated policy grants. Read-only on
// purpose: the bot never hands out writes.
var readActions = []string{
	"dynamodb:BatchGetItem",
	"dynamodb:ConditionCheckItem",
	"dynamodb:DescribeTable",
	"dynamodb:GetItem",
	"dynamodb:GetRecords",
	"dynamodb:GetShardIterator",
	"dynamodb:Query",
	"dynamodb:Scan",
}

type document struct {
	Version   string      `json:"Version"`
	Statement []statement `json:"Statement"`
}

type statement struct {
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource []string `json:"Resource"`
}

// Document renders the read-only policy document covering tables. Each table
// contributes two resource ARNs, the table itself and its indexes/streams.
func (s *Store) Document(tables []string) (string, error) {
	resources := make([]string, 0, 2*len(tables))
	for _, t := range tables {
		resources = append(resources,
			"arn:aws:dynamodb:*:*:table/"+t,
			"arn:aws:dynamodb:*:*:table/"+t+"/*",
		)
	}
	doc := document{
		Version: "2012-10-17",
		Statement: []statement{{
			Effect:   "Allow",
			Action:   readActions,
			Resource: resources,
		}},
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal policy document")
	}
	return string(out), nil
}

// tablesFromDocument extracts the distinct table names referenced by an
// IAM-returned policy document. The API hands documents back URL-encoded.
func tablesFromDocument(encoded string) ([]string, error) {
	raw, err := url.QueryUnescape(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "decode policy document")
	}
	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, errors.Wrap(err, "unmarshal policy document")
	}

	seen := map[string]bool{}
	var tables []string
	for _, st := range doc.Statement {
		for _, res := range st.Resource {
			i := strings.Index(res, ":table/")
			if i < 0 {
				continue
			}
			name := strings.TrimSuffix(res[i+len(":table/"):], "/*")
			if !seen[name] {
				seen[name] = true
				tables = append(tables, name)
			}
		}
	}
	sort.Strings(tables)
	return tables, nil
}
