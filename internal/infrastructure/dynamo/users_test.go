package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-signup-nosql/internal/config"
	"github.com/go-signup-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUsersTable   = "users"
	testUniquesTable = "user_uniques"
)

// fakeDynamo keeps items per table keyed by their hash attribute and applies
// attribute_not_exists conditions the way a transaction does: all or nothing.
type fakeDynamo struct {
	tables map[string]map[string]map[string]types.AttributeValue
	keys   map[string]string

	transactErr error
	unprocessed bool
	scanPages   []*dynamodb.ScanOutput

	gets      []*dynamodb.GetItemInput
	transacts []*dynamodb.TransactWriteItemsInput
	scans     []*dynamodb.ScanInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		tables: map[string]map[string]map[string]types.AttributeValue{
			testUsersTable:   {},
			testUniquesTable: {},
		},
		keys: map[string]string{
			testUsersTable:   fieldUserID,
			testUniquesTable: fieldUniqueKey,
		},
	}
}

func (f *fakeDynamo) hash(table string, item map[string]types.AttributeValue) string {
	if v, ok := item[f.keys[table]].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.gets = append(f.gets, in)
	table := aws.ToString(in.TableName)
	return &dynamodb.GetItemOutput{Item: f.tables[table][f.hash(table, in.Key)]}, nil
}

func (f *fakeDynamo) BatchGetItem(_ context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	out := &dynamodb.BatchGetItemOutput{
		Responses:       map[string][]map[string]types.AttributeValue{},
		UnprocessedKeys: map[string]types.KeysAndAttributes{},
	}
	for table, ka := range in.RequestItems {
		if f.unprocessed {
			out.UnprocessedKeys[table] = ka
			continue
		}
		for _, k := range ka.Keys {
			if item, ok := f.tables[table][f.hash(table, k)]; ok {
				out.Responses[table] = append(out.Responses[table], item)
			}
		}
	}
	return out, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.transacts = append(f.transacts, in)
	if f.transactErr != nil {
		return nil, f.transactErr
	}
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		table := aws.ToString(ti.Put.TableName)
		if _, exists := f.tables[table][f.hash(table, ti.Put.Item)]; exists {
			reasons[i].Code = aws.String("ConditionalCheckFailed")
			failed = true
			continue
		}
		reasons[i].Code = aws.String("None")
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}
	for _, ti := range in.TransactItems {
		table := aws.ToString(ti.Put.TableName)
		f.tables[table][f.hash(table, ti.Put.Item)] = ti.Put.Item
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	table := aws.ToString(in.TableName)
	item, ok := f.tables[table][f.hash(table, in.Key)]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	for placeholder, name := range in.ExpressionAttributeNames {
		item[name] = in.ExpressionAttributeValues[":v"+placeholder[2:]]
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scans = append(f.scans, in)
	page := f.scanPages[len(f.scans)-1]
	return page, nil
}

func newTestRepo(f *fakeDynamo) *UserRepo {
	return newUserRepo(f, config.DynamoTables{Users: testUsersTable, UserUniques: testUniquesTable}, time.Second)
}

func testUser(id, username, email string) *domain.User {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.User{
		UserID:        id,
		Email:         email,
		Username:      username,
		PasswordHash:  "hash",
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestInsert_WritesUserAndBothClaims(t *testing.T) {
	f := newFakeDynamo()
	repo := newTestRepo(f)

	require.NoError(t, repo.Insert(context.Background(), testUser("u1", "alice", "alice@example.com")))

	require.Len(t, f.transacts, 1)
	items := f.transacts[0].TransactItems
	require.Len(t, items, 3)
	assert.Equal(t, testUsersTable, aws.ToString(items[0].Put.TableName))
	assert.Equal(t, "attribute_not_exists(user_id)", aws.ToString(items[0].Put.ConditionExpression))

	claims := map[string]string{}
	for _, ti := range items[1:] {
		assert.Equal(t, testUniquesTable, aws.ToString(ti.Put.TableName))
		assert.Equal(t, "attribute_not_exists(unique_key)", aws.ToString(ti.Put.ConditionExpression))
		key := ti.Put.Item[fieldUniqueKey].(*types.AttributeValueMemberS).Value
		owner := ti.Put.Item[fieldOwnerID].(*types.AttributeValueMemberS).Value
		claims[key] = owner
	}
	assert.Equal(t, map[string]string{"username#alice": "u1", "email#alice@example.com": "u1"}, claims)

	ok, err := repo.UsernameExists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.EmailExists(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.EmailExists(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInsert_DuplicateUsernameIsDuplicateKey(t *testing.T) {
	f := newFakeDynamo()
	repo := newTestRepo(f)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, testUser("u1", "alice", "alice@example.com")))

	err := repo.Insert(ctx, testUser("u2", "alice", "other@example.com"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateKey))
	// The email claim of the rejected insert must not survive.
	ok, err := repo.EmailExists(ctx, "other@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInsert_DuplicateEmailIsDuplicateKey(t *testing.T) {
	f := newFakeDynamo()
	repo := newTestRepo(f)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, testUser("u1", "alice", "alice@example.com")))

	err := repo.Insert(ctx, testUser("u2", "bob", "alice@example.com"))

	assert.True(t, errors.Is(err, domain.ErrDuplicateKey))
}

func TestInsert_OtherFailureIsNotDuplicateKey(t *testing.T) {
	f := newFakeDynamo()
	f.transactErr = &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: aws.String("ThrottlingError")}},
	}

	err := newTestRepo(f).Insert(context.Background(), testUser("u1", "alice", "alice@example.com"))

	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrDuplicateKey))
}

func TestExistsByEmailOrUsername(t *testing.T) {
	f := newFakeDynamo()
	repo := newTestRepo(f)
	ctx := context.Background()

	ok, err := repo.ExistsByEmailOrUsername(ctx, "alice@example.com", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Insert(ctx, testUser("u1", "alice", "alice@example.com")))

	ok, err = repo.ExistsByEmailOrUsername(ctx, "new@example.com", "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.ExistsByEmailOrUsername(ctx, "alice@example.com", "newname")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExistsByEmailOrUsername_UnprocessedKeysIsError(t *testing.T) {
	f := newFakeDynamo()
	f.unprocessed = true

	ok, err := newTestRepo(f).ExistsByEmailOrUsername(context.Background(), "a@example.com", "alice")

	require.Error(t, err)
	assert.False(t, ok)
}

func TestGetByUsername_ResolvesThroughClaim(t *testing.T) {
	f := newFakeDynamo()
	repo := newTestRepo(f)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, testUser("u1", "alice", "alice@example.com")))
	f.gets = nil

	u, err := repo.GetByUsername(ctx, "alice")

	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
	assert.Equal(t, "alice@example.com", u.Email)
	require.Len(t, f.gets, 2)
	assert.Equal(t, testUniquesTable, aws.ToString(f.gets[0].TableName))
	assert.Equal(t, testUsersTable, aws.ToString(f.gets[1].TableName))
	for _, in := range f.gets {
		assert.True(t, aws.ToBool(in.ConsistentRead))
	}
}

func TestGetByUsername_UnknownIsNotFound(t *testing.T) {
	_, err := newTestRepo(newFakeDynamo()).GetByUsername(context.Background(), "ghost")

	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdateLastLogin(t *testing.T) {
	f := newFakeDynamo()
	repo := newTestRepo(f)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, testUser("u1", "alice", "alice@example.com")))

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, "u1", at))

	u, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u.LastLogin)
	assert.True(t, at.Equal(*u.LastLogin))

	err = repo.UpdateLastLogin(ctx, "missing", at)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestScanUsernames_FollowsPages(t *testing.T) {
	f := newFakeDynamo()
	name := func(v string) map[string]types.AttributeValue {
		return map[string]types.AttributeValue{fieldUsername: &types.AttributeValueMemberS{Value: v}}
	}
	f.scanPages = []*dynamodb.ScanOutput{
		{
			Items:            []map[string]types.AttributeValue{name("alice"), name("bob")},
			LastEvaluatedKey: strKey(fieldUserID, "u2"),
		},
		{
			Items: []map[string]types.AttributeValue{name("carol"), {}},
		},
	}

	var seen []string
	n, err := newTestRepo(f).ScanUsernames(context.Background(), func(u string) { seen = append(seen, u) })

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"alice", "bob", "carol"}, seen)
	require.Len(t, f.scans, 2)
	assert.Nil(t, f.scans[0].ExclusiveStartKey)
	assert.Equal(t, strKey(fieldUserID, "u2"), f.scans[1].ExclusiveStartKey)
}
