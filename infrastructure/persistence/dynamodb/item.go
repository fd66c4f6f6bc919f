package dynamodb

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/schema"
)

const (
	entityTypeNode      = "Node"
	entityTypePrincipal = "Principal"
	nodeSortPrefix      = "NODE#"
	principalSortPrefix = "PRINCIPAL#"
)

// nodeItem is the DynamoDB layout of a content node. Every node of a site
// shares one partition so the whole tree loads with a single query.
type nodeItem struct {
	PK           string                       `dynamodbav:"PK"`
	SK           string                       `dynamodbav:"SK"`
	EntityType   string                       `dynamodbav:"EntityType"`
	NodeID       int64                        `dynamodbav:"NodeID"`
	ParentID     int64                        `dynamodbav:"ParentID"`
	Position     int                          `dynamodbav:"Position"`
	Name         string                       `dynamodbav:"Name"`
	TypeName     string                       `dynamodbav:"TypeName"`
	Title        string                       `dynamodbav:"Title"`
	Description  string                       `dynamodbav:"Description"`
	State        string                       `dynamodbav:"State"`
	DefaultView  string                       `dynamodbav:"DefaultView"`
	InNavigation bool                         `dynamodbav:"InNavigation"`
	Tags         []string                     `dynamodbav:"Tags"`
	Owner        string                       `dynamodbav:"Owner"`
	CreatedAt    string                       `dynamodbav:"CreatedAt"`
	UpdatedAt    string                       `dynamodbav:"UpdatedAt"`
	LocalRoles   map[string][]string          `dynamodbav:"LocalRoles,omitempty"`
	Attributes   map[string]interface{}       `dynamodbav:"Attributes,omitempty"`
	Files        map[string]*schema.FileValue `dynamodbav:"Files,omitempty"`
}

func sitePartition(site string) string {
	return "SITE#" + site
}

func nodeSortKey(id int64) string {
	return fmt.Sprintf("%s%012d", nodeSortPrefix, id)
}

func toNodeItem(site string, rec content.Record) nodeItem {
	item := nodeItem{
		PK:           sitePartition(site),
		SK:           nodeSortKey(rec.ID),
		EntityType:   entityTypeNode,
		NodeID:       rec.ID,
		ParentID:     rec.ParentID,
		Position:     rec.Position,
		Name:         rec.Name,
		TypeName:     rec.TypeName,
		Title:        rec.Title,
		Description:  rec.Description,
		State:        rec.State,
		DefaultView:  rec.DefaultView,
		InNavigation: rec.InNavigation,
		Tags:         rec.Tags,
		Owner:        rec.Owner,
		CreatedAt:    rec.CreationDate.Format(time.RFC3339Nano),
		UpdatedAt:    rec.ModificationDate.Format(time.RFC3339Nano),
		LocalRoles:   rec.LocalRoles,
	}
	for k, v := range rec.Attributes {
		if fv, ok := v.(*schema.FileValue); ok {
			if item.Files == nil {
				item.Files = make(map[string]*schema.FileValue)
			}
			item.Files[k] = fv
			continue
		}
		if item.Attributes == nil {
			item.Attributes = make(map[string]interface{})
		}
		item.Attributes[k] = v
	}
	return item
}

func (i nodeItem) toRecord() (content.Record, error) {
	created, err := time.Parse(time.RFC3339Nano, i.CreatedAt)
	if err != nil {
		return content.Record{}, fmt.Errorf("node %d: bad CreatedAt: %w", i.NodeID, err)
	}
	updated, err := time.Parse(time.RFC3339Nano, i.UpdatedAt)
	if err != nil {
		return content.Record{}, fmt.Errorf("node %d: bad UpdatedAt: %w", i.NodeID, err)
	}
	attrs := make(map[string]interface{}, len(i.Attributes)+len(i.Files))
	for k, v := range i.Attributes {
		attrs[k] = v
	}
	for k, v := range i.Files {
		attrs[k] = v
	}
	return content.Record{
		ID:               i.NodeID,
		ParentID:         i.ParentID,
		Position:         i.Position,
		Name:             i.Name,
		TypeName:         i.TypeName,
		Title:            i.Title,
		Description:      i.Description,
		State:            i.State,
		DefaultView:      i.DefaultView,
		InNavigation:     i.InNavigation,
		Tags:             i.Tags,
		Owner:            i.Owner,
		CreationDate:     created,
		ModificationDate: updated,
		LocalRoles:       i.LocalRoles,
		Attributes:       attrs,
	}, nil
}

func marshalNode(site string, rec content.Record) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(toNodeItem(site, rec))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal node %d: %w", rec.ID, err)
	}
	return av, nil
}

func unmarshalNode(av map[string]types.AttributeValue) (content.Record, error) {
	var item nodeItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return content.Record{}, fmt.Errorf("failed to unmarshal node: %w", err)
	}
	return item.toRecord()
}

func nodeKey(site string, id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: sitePartition(site)},
		"SK": &types.AttributeValueMemberS{Value: nodeSortKey(id)},
	}
}
