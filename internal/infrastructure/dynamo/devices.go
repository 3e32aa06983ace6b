package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-notify-nosql/internal/domain"
)

// DeviceRepo provides typed DynamoDB operations for the user_devices table.
// The device token is the partition key, which gives the unique-token
// invariant for free: upserting an existing token overwrites its row.
type DeviceRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDeviceRepo(client *dynamodb.Client, tableName string) *DeviceRepo {
	return &DeviceRepo{client: client, tableName: tableName}
}

// Upsert registers a device token for the user, reactivating and reassigning
// the token if it already exists.
func (r *DeviceRepo) Upsert(ctx context.Context, d *domain.UserDevice) error {
	item, err := attributevalue.MarshalMap(d)
	if err != nil {
		return fmt.Errorf("marshal device: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *DeviceRepo) GetByToken(ctx context.Context, token string) (*domain.UserDevice, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("device_token", token),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("device not found: %w", domain.ErrNotFound)
	}
	var d domain.UserDevice
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Deactivate marks the token inactive only when it belongs to userID.
// A mismatched owner surfaces as ErrForbidden.
func (r *DeviceRepo) Deactivate(ctx context.Context, userID, token string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldIsActive:  false,
		fieldUpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	ue.Values[":uid"] = &types.AttributeValueMemberS{Value: userID}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("device_token", token),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("user_id = :uid"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("token not owned by user: %w", domain.ErrForbidden)
		}
		return err
	}
	return nil
}

// DeactivateMany marks every given token inactive regardless of owner.
// Used after the push provider reports tokens as unregistered or invalid.
func (r *DeviceRepo) DeactivateMany(ctx context.Context, tokens []string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldIsActive:  false,
		fieldUpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	for _, token := range tokens {
		_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(r.tableName),
			Key:                       strKey("device_token", token),
			UpdateExpression:          aws.String(ue.Expr),
			ExpressionAttributeNames:  ue.Names,
			ExpressionAttributeValues: ue.Values,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ActiveTokens returns the user's active device tokens via the user_id GSI.
func (r *DeviceRepo) ActiveTokens(ctx context.Context, userID string) ([]string, error) {
	devices, err := r.queryIndex(ctx, "user_id-index", fieldUserID, userID)
	if err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.DeviceToken)
	}
	return tokens, nil
}

// UserIDsByPlatform returns the distinct owners of active tokens on platform.
func (r *DeviceRepo) UserIDsByPlatform(ctx context.Context, platform string) (map[string]struct{}, error) {
	devices, err := r.queryIndex(ctx, "platform-index", fieldPlatform, platform)
	if err != nil {
		return nil, err
	}
	return ownerSet(devices), nil
}

// AllActiveUserIDs returns the distinct owners of any active token.
func (r *DeviceRepo) AllActiveUserIDs(ctx context.Context) (map[string]struct{}, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("#a = :t"),
		ExpressionAttributeNames: map[string]string{
			"#a": fieldIsActive,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
	}
	var devices []domain.UserDevice
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.UserDevice
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		devices = append(devices, page...)
		if out.LastEvaluatedKey == nil {
			return ownerSet(devices), nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (r *DeviceRepo) queryIndex(ctx context.Context, index, attr, value string) ([]domain.UserDevice, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String("#k = :v"),
		FilterExpression:       aws.String("#a = :t"),
		ExpressionAttributeNames: map[string]string{
			"#k": attr,
			"#a": fieldIsActive,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
	}
	var devices []domain.UserDevice
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.UserDevice
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		devices = append(devices, page...)
		if out.LastEvaluatedKey == nil {
			return devices, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func ownerSet(devices []domain.UserDevice) map[string]struct{} {
	ids := make(map[string]struct{}, len(devices))
	for _, d := range devices {
		ids[d.UserID] = struct{}{}
	}
	return ids
}
