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
	"github.com/go-signup-nosql/internal/config"
	"github.com/go-signup-nosql/internal/domain"
)

const (
	uniqueKindUsername = "username"
	uniqueKindEmail    = "email"
)

// api is the subset of *dynamodb.Client the repo calls.
type api interface {
	dynamodb.ScanAPIClient
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// UserRepo provides typed DynamoDB operations for the users table. Email and
// username uniqueness is enforced through conditional puts on a separate
// user_uniques table inside the same transaction as the user item.
type UserRepo struct {
	client       api
	tableName    string
	uniquesTable string
	timeout      time.Duration
}

// NewUserRepo bounds every single-item call by timeout; zero means no bound.
// ScanUsernames is never bounded.
func NewUserRepo(client *dynamodb.Client, tables config.DynamoTables, timeout time.Duration) *UserRepo {
	return newUserRepo(client, tables, timeout)
}

func newUserRepo(client api, tables config.DynamoTables, timeout time.Duration) *UserRepo {
	return &UserRepo{client: client, tableName: tables.Users, uniquesTable: tables.UserUniques, timeout: timeout}
}

func (r *UserRepo) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Insert creates the user together with its email and username claims.
// Returns domain.ErrDuplicateKey when either claim already exists.
func (r *UserRepo) Insert(ctx context.Context, u *domain.User) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(" + fieldUserID + ")"),
			}},
			r.claim(uniqueKindUsername, u.Username, u.UserID),
			r.claim(uniqueKindEmail, u.Email, u.UserID),
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("insert user %s: %w", u.Username, domain.ErrDuplicateKey)
		}
		return fmt.Errorf("insert user %s: %w", u.Username, err)
	}
	return nil
}

func (r *UserRepo) claim(kind, value, ownerID string) types.TransactWriteItem {
	return types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(r.uniquesTable),
		Item: map[string]types.AttributeValue{
			fieldUniqueKey: &types.AttributeValueMemberS{Value: uniqueKey(kind, value)},
			fieldOwnerID:   &types.AttributeValueMemberS{Value: ownerID},
		},
		ConditionExpression: aws.String("attribute_not_exists(" + fieldUniqueKey + ")"),
	}}
}

// UsernameExists is a strongly consistent exact-match lookup on the claims table.
func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.claimed(ctx, uniqueKindUsername, username)
}

func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.claimed(ctx, uniqueKindEmail, email)
}

func (r *UserRepo) claimed(ctx context.Context, kind, value string) (bool, error) {
	item, err := r.getClaim(ctx, kind, value)
	if err != nil {
		return false, err
	}
	return item != nil, nil
}

func (r *UserRepo) getClaim(ctx context.Context, kind, value string) (map[string]types.AttributeValue, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.uniquesTable),
		Key:            strKey(fieldUniqueKey, uniqueKey(kind, value)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s claim: %w", kind, err)
	}
	return out.Item, nil
}

// ExistsByEmailOrUsername reports whether either value is already claimed.
func (r *UserRepo) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	out, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
		RequestItems: map[string]types.KeysAndAttributes{
			r.uniquesTable: {
				Keys: []map[string]types.AttributeValue{
					strKey(fieldUniqueKey, uniqueKey(uniqueKindEmail, email)),
					strKey(fieldUniqueKey, uniqueKey(uniqueKindUsername, username)),
				},
				ConsistentRead: aws.Bool(true),
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("batch get claims: %w", err)
	}
	if len(out.Responses[r.uniquesTable]) > 0 {
		return true, nil
	}
	if len(out.UnprocessedKeys) > 0 {
		return false, errors.New("batch get claims: unprocessed keys")
	}
	return false, nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsername resolves the username claim to its owner and reads the user,
// both strongly consistent, so a login right after registration sees the row.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	ownerID, err := r.claimOwner(ctx, uniqueKindUsername, username)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, ownerID)
}

func (r *UserRepo) claimOwner(ctx context.Context, kind, value string) (string, error) {
	item, err := r.getClaim(ctx, kind, value)
	if err != nil {
		return "", err
	}
	owner, ok := item[fieldOwnerID].(*types.AttributeValueMemberS)
	if !ok || owner.Value == "" {
		return "", fmt.Errorf("%s %s: %w", kind, value, domain.ErrNotFound)
	}
	return owner.Value, nil
}

// UpdateLastLogin stamps last_login and updated_at.
func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.Update(ctx, userID, map[string]interface{}{fieldLastLogin: at})
}

func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	updates[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(" + fieldUserID + ")"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailure(err) {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return err
}

// ScanUsernames streams every stored username to fn, one page at a time.
// Returns the number of usernames visited.
func (r *UserRepo) ScanUsernames(ctx context.Context, fn func(username string)) (int, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		ProjectionExpression:     aws.String("#u"),
		ExpressionAttributeNames: map[string]string{"#u": fieldUsername},
	})
	n := 0
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return n, fmt.Errorf("scan usernames: %w", err)
		}
		for _, item := range page.Items {
			if v, ok := item[fieldUsername].(*types.AttributeValueMemberS); ok && v.Value != "" {
				fn(v.Value)
				n++
			}
		}
	}
	return n, nil
}
