// Package dynamo provides an archive.Catalog stored in Amazon DynamoDB.
//
// DynamoDB conditional writes give the catalog the insert-once semantics that
// object stores lack, so concurrent archivers sharing a table never record the
// same key twice.
//
// Table schema:
//   - Partition key: query_mode (string) - the query mode, with "_" prepended
//     when it is empty or starts with "_" (DynamoDB rejects empty key values)
//   - Sort key: key (string) - the archive key
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name ragfmt-catalog \
//	  --attribute-definitions AttributeName=query_mode,AttributeType=S AttributeName=key,AttributeType=S \
//	  --key-schema AttributeName=query_mode,KeyType=HASH AttributeName=key,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/ragfmt/archive"
)

const (
	attrQueryMode  = "query_mode"
	attrKey        = "key"
	attrEntities   = "entities"
	attrRelations  = "relations"
	attrChunks     = "chunks"
	attrReferences = "references"
	attrSize       = "size"
	attrCreatedAt  = "created_at"

	modeEscape = "_"
)

// Client is the interface for DynamoDB operations.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var _ Client = (*dynamodb.Client)(nil)

// Catalog implements archive.Catalog on a DynamoDB table.
type Catalog struct {
	client    Client
	tableName string
}

var _ archive.Catalog = (*Catalog)(nil)

// NewCatalog creates a catalog on an existing table.
func NewCatalog(client Client, tableName string) *Catalog {
	return &Catalog{
		client:    client,
		tableName: tableName,
	}
}

// Record writes the entry, failing with archive.ErrDuplicateEntry if the key is taken.
func (c *Catalog) Record(ctx context.Context, e archive.Entry) error {
	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			attrQueryMode:  &types.AttributeValueMemberS{Value: partitionKey(e.QueryMode)},
			attrKey:        &types.AttributeValueMemberS{Value: e.Key},
			attrEntities:   number(e.Entities),
			attrRelations:  number(e.Relations),
			attrChunks:     number(e.Chunks),
			attrReferences: number(e.References),
			attrSize:       number(e.Size),
			attrCreatedAt:  &types.AttributeValueMemberS{Value: e.CreatedAt.UTC().Format(time.RFC3339Nano)},
		},
		// "key" is a DynamoDB reserved word.
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": attrKey},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return archive.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to record catalog entry in DynamoDB: %w", err)
	}
	return nil
}

// Entries returns all entries for a query mode, ordered by creation time.
func (c *Catalog) Entries(ctx context.Context, queryMode string) ([]archive.Entry, error) {
	paginator := dynamodb.NewQueryPaginator(c.client, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("query_mode = :m"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m": &types.AttributeValueMemberS{Value: partitionKey(queryMode)},
		},
	})

	entries := []archive.Entry{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query DynamoDB: %w", err)
		}
		for _, item := range page.Items {
			e, err := decodeEntry(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
	}

	archive.SortEntries(entries)
	return entries, nil
}

// Remove deletes an entry. Deleting a missing item succeeds in DynamoDB.
func (c *Catalog) Remove(ctx context.Context, queryMode, key string) error {
	_, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			attrQueryMode: &types.AttributeValueMemberS{Value: partitionKey(queryMode)},
			attrKey:       &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete catalog entry from DynamoDB: %w", err)
	}
	return nil
}

// partitionKey maps a query mode to a non-empty partition key value.
func partitionKey(queryMode string) string {
	if queryMode == "" || strings.HasPrefix(queryMode, modeEscape) {
		return modeEscape + queryMode
	}
	return queryMode
}

func queryModeOf(pk string) string {
	if rest, ok := strings.CutPrefix(pk, modeEscape); ok {
		return rest
	}
	return pk
}

func number(n int) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}
}

func decodeEntry(item map[string]types.AttributeValue) (archive.Entry, error) {
	var (
		e   archive.Entry
		err error
	)
	pk, err := stringAttr(item, attrQueryMode)
	if err != nil {
		return e, err
	}
	e.QueryMode = queryModeOf(pk)
	if e.Key, err = stringAttr(item, attrKey); err != nil {
		return e, err
	}
	for name, dst := range map[string]*int{
		attrEntities:   &e.Entities,
		attrRelations:  &e.Relations,
		attrChunks:     &e.Chunks,
		attrReferences: &e.References,
		attrSize:       &e.Size,
	} {
		if *dst, err = numberAttr(item, name); err != nil {
			return e, err
		}
	}
	created, err := stringAttr(item, attrCreatedAt)
	if err != nil {
		return e, err
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return e, fmt.Errorf("invalid %s attribute in DynamoDB: %w", attrCreatedAt, err)
	}
	return e, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) (string, error) {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("invalid %s attribute in DynamoDB", name)
	}
	return v.Value, nil
}

func numberAttr(item map[string]types.AttributeValue, name string) (int, error) {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid %s attribute in DynamoDB", name)
	}
	n, err := strconv.Atoi(v.Value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return n, nil
}
