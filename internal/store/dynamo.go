package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/lunarlash/leadline/internal/leads"
	"github.com/lunarlash/leadline/pkg/logging"
)

// DefaultHydrationWidth bounds how many parallel point reads a bulk listing
// may issue.
const DefaultHydrationWidth = 20

// ErrNotFound indicates the requested key does not exist.
var ErrNotFound = errors.New("store: key not found")

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// KV is a durable key-value store over a single DynamoDB table. Keys look
// like "<namespace>/<rest>" and map to pk=<namespace>, sk=<rest>, so a prefix
// listing is a Query and reverse index order is newest-first for timestamped
// keys.
type KV struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

// leadItem is the stored shape of one lead entry. Status and archived are
// mirrored out of the record so they stay queryable next to the blob.
type leadItem struct {
	PK       string        `dynamodbav:"pk"`
	SK       string        `dynamodbav:"sk"`
	Record   *leads.Record `dynamodbav:"record"`
	Status   string        `dynamodbav:"leadStatus,omitempty"`
	Archived bool          `dynamodbav:"archived"`
}

// New builds a store backed by the provided DynamoDB client.
func New(client dynamoAPI, tableName string, logger *logging.Logger) *KV {
	if client == nil {
		panic("store: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("store: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &KV{client: client, tableName: tableName, logger: logger}
}

// Put upserts a lead record under key. The write is a single item put, so a
// concurrent reader sees either the old record or the new one, never a
// partial write.
func (s *KV) Put(ctx context.Context, key string, rec *leads.Record) error {
	if rec == nil {
		return errors.New("store: record cannot be nil")
	}
	pk, sk, err := splitKey(key)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(leadItem{
		PK:       pk,
		SK:       sk,
		Record:   rec,
		Status:   string(rec.Status),
		Archived: rec.Archived,
	})
	if err != nil {
		return fmt.Errorf("store: failed to marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("store: failed to persist %s: %w", key, err)
	}
	return nil
}

// Get fetches the record stored under key, or ErrNotFound.
func (s *KV) Get(ctx context.Context, key string) (*leads.Record, error) {
	pk, sk, err := splitKey(key)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
			"sk": &types.AttributeValueMemberS{Value: sk},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to fetch %s: %w", key, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var item leadItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("store: failed to decode %s: %w", key, err)
	}
	if item.Record == nil {
		return nil, ErrNotFound
	}
	return item.Record, nil
}

// ListKeys returns every key under prefix, newest first. The query projects
// keys only; records are hydrated separately via GetMany.
func (s *KV) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	pk, skPrefix, err := splitKey(prefix)
	if err != nil {
		return nil, err
	}

	keyCond := "pk = :pk"
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: pk},
	}
	if skPrefix != "" {
		keyCond += " AND begins_with(sk, :skPrefix)"
		values[":skPrefix"] = &types.AttributeValueMemberS{Value: skPrefix}
	}

	var keys []string
	var exclusiveStart map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			KeyConditionExpression:    aws.String(keyCond),
			ExpressionAttributeValues: values,
			ProjectionExpression:      aws.String("sk"),
			ScanIndexForward:          aws.Bool(false),
			ExclusiveStartKey:         exclusiveStart,
		})
		if err != nil {
			return nil, fmt.Errorf("store: failed to list %s: %w", prefix, err)
		}
		for _, item := range out.Items {
			var row struct {
				SK string `dynamodbav:"sk"`
			}
			if err := attributevalue.UnmarshalMap(item, &row); err != nil {
				continue
			}
			keys = append(keys, pk+"/"+row.SK)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		exclusiveStart = out.LastEvaluatedKey
	}
	return keys, nil
}

// GetMany hydrates the records for keys with a bounded worker pool,
// preserving the order of keys. Keys that are missing or fail to read are
// skipped rather than failing the whole listing.
func (s *KV) GetMany(ctx context.Context, keys []string, width int) []*leads.Record {
	if width <= 0 {
		width = DefaultHydrationWidth
	}
	if width > len(keys) {
		width = len(keys)
	}

	results := make([]*leads.Record, len(keys))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < width; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rec, err := s.Get(ctx, keys[i])
				if err != nil {
					s.logger.Warn("store: skipping unreadable record", "key", keys[i], "error", err)
					continue
				}
				results[i] = rec
			}
		}()
	}

	for i := range keys {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	out := make([]*leads.Record, 0, len(keys))
	for _, rec := range results {
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

// splitKey maps "<namespace>/<rest>" onto the table's pk/sk pair. A prefix
// may have an empty rest ("leads/"), a concrete key may not.
func splitKey(key string) (string, string, error) {
	ns, rest, ok := strings.Cut(key, "/")
	if !ok || ns == "" {
		return "", "", fmt.Errorf("store: malformed key %q", key)
	}
	return ns, rest, nil
}
