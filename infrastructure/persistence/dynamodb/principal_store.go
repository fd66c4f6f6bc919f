package dynamodb

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/domain/security"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

type principalItem struct {
	PK         string             `dynamodbav:"PK"`
	SK         string             `dynamodbav:"SK"`
	EntityType string             `dynamodbav:"EntityType"`
	Principal  security.Principal `dynamodbav:"Principal"`
}

// PrincipalStore implements ports.PrincipalStore.
type PrincipalStore struct {
	client    Client
	tableName string
	site      string
	logger    *zap.Logger
}

// NewPrincipalStore creates a principal store sharing the node table.
func NewPrincipalStore(client Client, tableName, site string, logger *zap.Logger) *PrincipalStore {
	return &PrincipalStore{client: client, tableName: tableName, site: site, logger: logger}
}

func (s *PrincipalStore) key(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: sitePartition(s.site)},
		"SK": &types.AttributeValueMemberS{Value: principalSortPrefix + name},
	}
}

func (s *PrincipalStore) Get(ctx context.Context, name string) (*security.Principal, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(name),
	})
	if err != nil {
		return nil, classify("get principal", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("principal %s", name))
	}
	var item principalItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal principal: %w", err)
	}
	return &item.Principal, nil
}

func (s *PrincipalStore) List(ctx context.Context) ([]*security.Principal, error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(sitePartition(s.site))).
		And(expression.Key("SK").BeginsWith(principalSortPrefix))
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

	var out []*security.Principal
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list principals", err)
		}
		for _, av := range page.Items {
			var item principalItem
			if err := attributevalue.UnmarshalMap(av, &item); err != nil {
				s.logger.Warn("Failed to parse principal", zap.Error(err))
				continue
			}
			p := item.Principal
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *PrincipalStore) Save(ctx context.Context, p *security.Principal) error {
	if p == nil || p.Name == "" {
		return pkgerrors.NewValidationError("principal name is required")
	}
	item, err := attributevalue.MarshalMap(principalItem{
		PK:         sitePartition(s.site),
		SK:         principalSortPrefix + p.Name,
		EntityType: entityTypePrincipal,
		Principal:  *p,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal principal: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return classify("save principal", err)
	}
	return nil
}
