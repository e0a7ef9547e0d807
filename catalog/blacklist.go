package catalog

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"
)

// The blacklists live as two rows in the state table, one per kind, with the
// entries comma-joined in a single string attribute. An empty list is stored
// as the sentinel below rather than deleting the row.
const (
	keyAttr  = "key"
	dataAttr = "data"

	emptySentinel = "EMPTY"
)

func rowKey(kind string) string { return "blacklist_" + kind }

// List returns the blacklist entries for kind ("user" or "table"). A missing
// row and the sentinel both read as empty.
func (s *Store) List(ctx context.Context, kind string) ([]string, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.stateTable),
		Key: map[string]types.AttributeValue{
			keyAttr: &types.AttributeValueMemberS{Value: rowKey(kind)},
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", rowKey(kind))
	}
	data, ok := out.Item[dataAttr].(*types.AttributeValueMemberS)
	if !ok || data.Value == "" || data.Value == emptySentinel {
		return nil, nil
	}
	return strings.Split(data.Value, ","), nil
}

// Add appends entry to the kind's blacklist. It reports false when the entry
// was already present; the row is left untouched in that case.
func (s *Store) Add(ctx context.Context, kind, entry string) (bool, error) {
	entries, err := s.List(ctx, kind)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if strings.EqualFold(e, entry) {
			return false, nil
		}
	}
	if err := s.put(ctx, kind, append(entries, entry)); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes entry from the kind's blacklist. It reports false when the
// entry was not present.
func (s *Store) Remove(ctx context.Context, kind, entry string) (bool, error) {
	entries, err := s.List(ctx, kind)
	if err != nil {
		return false, err
	}
	kept := entries[:0]
	found := false
	for _, e := range entries {
		if strings.EqualFold(e, entry) {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return false, nil
	}
	if err := s.put(ctx, kind, kept); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) put(ctx context.Context, kind string, entries []string) error {
	value := emptySentinel
	if len(entries) > 0 {
		value = strings.Join(entries, ",")
	}
	_, err := s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.stateTable),
		Item: map[string]types.AttributeValue{
			keyAttr:  &types.AttributeValueMemberS{Value: rowKey(kind)},
			dataAttr: &types.AttributeValueMemberS{Value: value},
		},
	})
	return errors.Wrapf(err, "put %s", rowKey(kind))
}
