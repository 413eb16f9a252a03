package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// windowNamespace keeps rate windows apart from lead entries in the table.
const windowNamespace = "ratelimit"

// Window is the persisted submission counter for one source address. It is
// overwritten on every admitted request and self-expires logically via the
// window check; it is never deleted.
type Window struct {
	WindowStartAt time.Time `json:"window_start_at" dynamodbav:"windowStartAt"`
	Count         int       `json:"count" dynamodbav:"count"`
	LastSubmitAt  time.Time `json:"last_submit_at" dynamodbav:"lastSubmitAt"`
}

type windowItem struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
	Window
}

// GetWindow returns the current window for a source, or nil if none exists.
func (s *KV) GetWindow(ctx context.Context, source string) (*Window, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: windowNamespace},
			"sk": &types.AttributeValueMemberS{Value: source},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to fetch window for %s: %w", source, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item windowItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("store: failed to decode window for %s: %w", source, err)
	}
	return &item.Window, nil
}

// PutWindow overwrites the window record for a source.
func (s *KV) PutWindow(ctx context.Context, source string, w *Window) error {
	if w == nil {
		return fmt.Errorf("store: window cannot be nil")
	}
	item, err := attributevalue.MarshalMap(windowItem{
		PK:     windowNamespace,
		SK:     source,
		Window: *w,
	})
	if err != nil {
		return fmt.Errorf("store: failed to marshal window: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("store: failed to persist window for %s: %w", source, err)
	}
	return nil
}
