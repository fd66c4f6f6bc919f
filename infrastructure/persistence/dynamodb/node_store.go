// Package dynamodb persists the content tree and principals in a single
// DynamoDB table.
package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/domain/content"
)

const (
	maxBatchSize = 25
	maxRetries   = 3
)

// Client is the subset of the DynamoDB API the stores use.
type Client interface {
	dynamodb.QueryAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// NodeStore implements ports.NodeStore.
type NodeStore struct {
	client    Client
	tableName string
	site      string
	logger    *zap.Logger
}

// NewNodeStore creates a store for one site partition.
func NewNodeStore(client Client, tableName, site string, logger *zap.Logger) *NodeStore {
	return &NodeStore{
		client:    client,
		tableName: tableName,
		site:      site,
		logger:    logger,
	}
}

// LoadAll queries every node of the site partition.
func (s *NodeStore) LoadAll(ctx context.Context) ([]content.Record, error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(sitePartition(s.site))).
		And(expression.Key("SK").BeginsWith(nodeSortPrefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyExpr).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var records []content.Record
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("query nodes", err)
		}
		for _, item := range page.Items {
			rec, err := unmarshalNode(item)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}

	s.logger.Debug("Loaded nodes from DynamoDB", zap.Int("count", len(records)))
	return records, nil
}

// Save writes records in batches.
func (s *NodeStore) Save(ctx context.Context, records []content.Record) error {
	requests := make([]types.WriteRequest, 0, len(records))
	for _, rec := range records {
		item, err := marshalNode(s.site, rec)
		if err != nil {
			return err
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	return s.batchWrite(ctx, "save nodes", requests)
}

// Delete removes records by id in batches.
func (s *NodeStore) Delete(ctx context.Context, ids []int64) error {
	requests := make([]types.WriteRequest, 0, len(ids))
	for _, id := range ids {
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: nodeKey(s.site, id)}})
	}
	return s.batchWrite(ctx, "delete nodes", requests)
}

func (s *NodeStore) batchWrite(ctx context.Context, operation string, requests []types.WriteRequest) error {
	for start := 0; start < len(requests); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(requests) {
			end = len(requests)
		}

		pending := requests[start:end]
		for retry := 0; len(pending) > 0; retry++ {
			if retry >= maxRetries {
				return classify(operation, fmt.Errorf("%d items left unprocessed", len(pending)))
			}
			result, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{s.tableName: pending},
			})
			if err != nil {
				return classify(operation, err)
			}
			pending = result.UnprocessedItems[s.tableName]
			if len(pending) == 0 {
				break
			}

			backoff := time.Duration(retry*retry+1) * 50 * time.Millisecond
			s.logger.Debug("Found unprocessed items, retrying",
				zap.Int("unprocessedCount", len(pending)),
				zap.Int("retry", retry+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil
}
