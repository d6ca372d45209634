// Package ddb implements catalog.Catalog on Amazon DynamoDB.
//
// Conditional writes on the revision attribute give the compare-and-swap
// semantics required for safe concurrent writers.
//
// Table schema:
//   - Partition key: name (string)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name annkit-catalog \
//	  --attribute-definitions AttributeName=name,AttributeType=S \
//	  --key-schema AttributeName=name,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
package ddb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/annkit/catalog"
)

// Client is the interface for DynamoDB operations.
type Client interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Compile-time check to ensure Catalog satisfies the catalog contract.
var _ catalog.Catalog = (*Catalog)(nil)

// Catalog stores records in a DynamoDB table.
type Catalog struct {
	client    Client
	tableName string
	now       func() time.Time
}

// New creates a DynamoDB catalog on an existing table.
func New(client Client, tableName string) *Catalog {
	return &Catalog{client: client, tableName: tableName, now: time.Now}
}

func (c *Catalog) Put(ctx context.Context, rec catalog.Record) (catalog.Record, error) {
	expected := rec.Revision
	rec.Revision++
	rec.UpdatedAt = c.now().UTC()

	input := &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      toItem(rec),
	}
	if expected == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(#n)")
		input.ExpressionAttributeNames = map[string]string{"#n": "name"}
	} else {
		input.ConditionExpression = aws.String("revision = :rev")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":rev": &types.AttributeValueMemberN{Value: strconv.FormatUint(expected, 10)},
		}
	}

	if _, err := c.client.PutItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return catalog.Record{}, fmt.Errorf("%w: %s", catalog.ErrConflict, rec.Name)
		}
		return catalog.Record{}, fmt.Errorf("failed to put catalog record: %w", err)
	}
	return rec, nil
}

func (c *Catalog) Get(ctx context.Context, name string) (catalog.Record, error) {
	resp, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            key(name),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return catalog.Record{}, fmt.Errorf("failed to get catalog record: %w", err)
	}
	if len(resp.Item) == 0 {
		return catalog.Record{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, name)
	}
	return fromItem(resp.Item)
}

func (c *Catalog) Delete(ctx context.Context, name string) error {
	_, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       key(name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete catalog record: %w", err)
	}
	return nil
}

func (c *Catalog) List(ctx context.Context) ([]catalog.Record, error) {
	var out []catalog.Record
	paginator := dynamodb.NewScanPaginator(c.client, &dynamodb.ScanInput{
		TableName:      aws.String(c.tableName),
		ConsistentRead: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog: %w", err)
		}
		for _, item := range page.Items {
			rec, err := fromItem(item)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b catalog.Record) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func key(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"name": &types.AttributeValueMemberS{Value: name},
	}
}

func toItem(rec catalog.Record) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"name":         &types.AttributeValueMemberS{Value: rec.Name},
		"algorithm":    &types.AttributeValueMemberS{Value: rec.Algorithm},
		"element_type": &types.AttributeValueMemberS{Value: rec.ElementType},
		"version":      &types.AttributeValueMemberN{Value: strconv.FormatInt(int64(rec.Version), 10)},
		"dim":          &types.AttributeValueMemberN{Value: strconv.Itoa(rec.Dim)},
		"count":        &types.AttributeValueMemberN{Value: strconv.Itoa(rec.Count)},
		"blob":         &types.AttributeValueMemberS{Value: rec.Blob},
		"compression":  &types.AttributeValueMemberS{Value: rec.Compression},
		"revision":     &types.AttributeValueMemberN{Value: strconv.FormatUint(rec.Revision, 10)},
		"updated_at":   &types.AttributeValueMemberS{Value: rec.UpdatedAt.Format(time.RFC3339Nano)},
	}
}

// itemReader decodes attributes and keeps the first error.
type itemReader struct {
	item map[string]types.AttributeValue
	err  error
}

func (r *itemReader) str(name string) string {
	v, ok := r.item[name].(*types.AttributeValueMemberS)
	if !ok {
		if r.err == nil {
			r.err = fmt.Errorf("invalid %s attribute in DynamoDB", name)
		}
		return ""
	}
	return v.Value
}

func (r *itemReader) num(name string) int64 {
	v, ok := r.item[name].(*types.AttributeValueMemberN)
	if !ok {
		if r.err == nil {
			r.err = fmt.Errorf("invalid %s attribute in DynamoDB", name)
		}
		return 0
	}
	n, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return n
}

func fromItem(item map[string]types.AttributeValue) (catalog.Record, error) {
	r := &itemReader{item: item}
	rec := catalog.Record{
		Name:        r.str("name"),
		Algorithm:   r.str("algorithm"),
		ElementType: r.str("element_type"),
		Version:     int32(r.num("version")),
		Dim:         int(r.num("dim")),
		Count:       int(r.num("count")),
		Blob:        r.str("blob"),
		Compression: r.str("compression"),
		Revision:    uint64(r.num("revision")),
	}
	updated := r.str("updated_at")
	if r.err != nil {
		return catalog.Record{}, r.err
	}
	t, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	rec.UpdatedAt = t
	return rec, nil
}
