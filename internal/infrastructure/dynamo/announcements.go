package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/schoolstream/internal/domain"
)

// AnnouncementRepo provides typed DynamoDB operations for the announcements table.
type AnnouncementRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAnnouncementRepo(client *dynamodb.Client, tableName string) *AnnouncementRepo {
	return &AnnouncementRepo{client: client, tableName: tableName}
}

func (r *AnnouncementRepo) Put(ctx context.Context, a *domain.Announcement) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal announcement: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *AnnouncementRepo) Get(ctx context.Context, announcementID string) (*domain.Announcement, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("announcement_id", announcementID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("announcement not found: %w", domain.ErrNotFound)
	}
	var a domain.Announcement
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByTenant queries the tenant_id-created_at GSI newest first.
func (r *AnnouncementRepo) ListByTenant(ctx context.Context, tenantID string, limit int32) ([]domain.Announcement, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("tenant_id-created_at-index"),
		KeyConditionExpression: aws.String("tenant_id = :tid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tid": &types.AttributeValueMemberS{Value: tenantID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	})
	if err != nil {
		return nil, err
	}
	var announcements []domain.Announcement
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &announcements); err != nil {
		return nil, err
	}
	return announcements, nil
}

func (r *AnnouncementRepo) Delete(ctx context.Context, announcementID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("announcement_id", announcementID),
	})
	return err
}
