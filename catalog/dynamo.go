package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the subset of the DynamoDB API the catalog depends on.
// The concrete *dynamodb.Client satisfies it; tests may substitute a fake.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoCatalog stores registrations in a DynamoDB table, using conditional
// writes for create-without-replace semantics so concurrent creators cannot
// clobber each other.
//
// Table schema:
//   - Partition key: index_name (string)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name vecbuild-indexes \
//	  --attribute-definitions AttributeName=index_name,AttributeType=S \
//	  --key-schema AttributeName=index_name,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type DynamoCatalog struct {
	client    DDBClient
	tableName string
}

// NewDynamoCatalog creates a catalog backed by the given table.
func NewDynamoCatalog(client DDBClient, tableName string) *DynamoCatalog {
	return &DynamoCatalog{
		client:    client,
		tableName: tableName,
	}
}

// Create registers the entry. Without replace the put is conditional on the
// name not existing, so a losing racer gets ErrIndexExists instead of
// silently overwriting.
func (c *DynamoCatalog) Create(ctx context.Context, entry Entry, replace bool) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      marshalEntry(entry),
	}
	if !replace {
		input.ConditionExpression = aws.String("attribute_not_exists(index_name)")
	}

	_, err := c.client.PutItem(ctx, input)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrIndexExists
		}
		return fmt.Errorf("put catalog entry: %w", err)
	}
	return nil
}

// Get returns the entry with the given name.
func (c *DynamoCatalog) Get(ctx context.Context, name string) (Entry, error) {
	resp, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"index_name": &types.AttributeValueMemberS{Value: name},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("get catalog entry: %w", err)
	}
	if len(resp.Item) == 0 {
		return Entry{}, ErrIndexNotFound
	}
	return unmarshalEntry(resp.Item)
}

// Delete removes the entry.
func (c *DynamoCatalog) Delete(ctx context.Context, name string) error {
	_, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"index_name": &types.AttributeValueMemberS{Value: name},
		},
	})
	if err != nil {
		return fmt.Errorf("delete catalog entry: %w", err)
	}
	return nil
}

// List returns all entries sorted by name.
func (c *DynamoCatalog) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	var startKey map[string]types.AttributeValue

	for {
		resp, err := c.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(c.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan catalog: %w", err)
		}
		for _, item := range resp.Items {
			entry, err := unmarshalEntry(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		if len(resp.LastEvaluatedKey) == 0 {
			break
		}
		startKey = resp.LastEvaluatedKey
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func marshalEntry(entry Entry) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"index_name":      &types.AttributeValueMemberS{Value: entry.Name},
		"column_name":     &types.AttributeValueMemberS{Value: entry.Column},
		"metric_type":     &types.AttributeValueMemberS{Value: entry.MetricType},
		"artifact_prefix": &types.AttributeValueMemberS{Value: entry.ArtifactPrefix},
		"created_at":      &types.AttributeValueMemberS{Value: entry.CreatedAt.UTC().Format(time.RFC3339Nano)},
	}
}

func unmarshalEntry(item map[string]types.AttributeValue) (Entry, error) {
	var entry Entry

	stringAttr := func(key string) (string, error) {
		attr, ok := item[key].(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("catalog item missing %s attribute", key)
		}
		return attr.Value, nil
	}

	var err error
	if entry.Name, err = stringAttr("index_name"); err != nil {
		return Entry{}, err
	}
	if entry.Column, err = stringAttr("column_name"); err != nil {
		return Entry{}, err
	}
	if entry.MetricType, err = stringAttr("metric_type"); err != nil {
		return Entry{}, err
	}
	if entry.ArtifactPrefix, err = stringAttr("artifact_prefix"); err != nil {
		return Entry{}, err
	}

	createdAt, err := stringAttr("created_at")
	if err != nil {
		return Entry{}, err
	}
	entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse created_at: %w", err)
	}
	return entry, nil
}
