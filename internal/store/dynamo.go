package store

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoDB key constants for the single-table design.
const (
	pkPrefix = "OWNER#"
	skRun    = "RUN#"
)

// DynamoAPI is the subset of the DynamoDB client the run store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoRunStore implements RunStore using AWS DynamoDB.
type DynamoRunStore struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

// Compile-time interface check.
var _ RunStore = (*DynamoRunStore)(nil)

// NewDynamoRunStore creates a DynamoRunStore for the given table.
// The client is normally dynamodb.NewFromConfig of the shared AWS config.
func NewDynamoRunStore(client DynamoAPI, tableName string) *DynamoRunStore {
	return &DynamoRunStore{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

func ownerPK(ownerID string) string {
	return pkPrefix + ownerID
}

// PutRun writes run under OWNER#{ownerId} / RUN#{runId} with a TTL.
func (s *DynamoRunStore) PutRun(ctx context.Context, run *Run) error {
	item, err := attributevalue.MarshalMap(run)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	pk := ownerPK(run.OwnerID)
	sk := skRun + run.ID
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}
	item["expiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(s.now().Add(RunTTL).Unix(), 10)}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}
	log.Debug().Str("pk", pk).Str("sk", sk).Str("status", run.Status).Msg("Run record written")
	return nil
}

// ListRuns returns up to limit runs for ownerID, newest first. A limit of
// zero or less returns every run.
func (s *DynamoRunStore) ListRuns(ctx context.Context, ownerID string, limit int) ([]*Run, error) {
	pk := ownerPK(ownerID)
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :skPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":       &types.AttributeValueMemberS{Value: pk},
			":skPrefix": &types.AttributeValueMemberS{Value: skRun},
		},
	}

	runs := []*Run{}
	// DynamoDB returns up to 1MB per Query call.
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query PK=%s: %w", pk, err)
		}
		for _, item := range result.Items {
			var run Run
			if err := attributevalue.UnmarshalMap(item, &run); err != nil {
				return nil, fmt.Errorf("unmarshal run PK=%s: %w", pk, err)
			}
			run.OwnerID = ownerID
			if run.ID == "" {
				if sk, ok := item["SK"].(*types.AttributeValueMemberS); ok {
					run.ID = strings.TrimPrefix(sk.Value, skRun)
				}
			}
			runs = append(runs, &run)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	// Run IDs are random, so SK order says nothing about age.
	slices.SortStableFunc(runs, func(a, b *Run) int {
		switch {
		case a.StartedAt > b.StartedAt:
			return -1
		case a.StartedAt < b.StartedAt:
			return 1
		}
		return 0
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
