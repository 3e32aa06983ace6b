package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-notify-nosql/internal/domain"
)

// UserRepo reads the user directory. This service never writes users;
// account lifecycle is owned by the auth collaborator.
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserRepo(client *dynamodb.Client, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListIDsByStatus scans the directory and returns the ids whose account
// state matches status (active | banned | pending).
func (r *UserRepo) ListIDsByStatus(ctx context.Context, status string) ([]string, error) {
	input := &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		ProjectionExpression: aws.String("user_id, email_confirmed, banned"),
	}
	switch status {
	case domain.StatusActive:
		input.FilterExpression = aws.String("email_confirmed = :t AND banned = :f")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		}
	case domain.StatusBanned:
		input.FilterExpression = aws.String("banned = :t")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		}
	case domain.StatusPending:
		input.FilterExpression = aws.String("email_confirmed = :f AND banned = :f")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":f": &types.AttributeValueMemberBOOL{Value: false},
		}
	default:
		return nil, fmt.Errorf("unknown status %q: %w", status, domain.ErrBadRequest)
	}

	var ids []string
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.User
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		for _, u := range page {
			ids = append(ids, u.UserID)
		}
		if out.LastEvaluatedKey == nil {
			return ids, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
