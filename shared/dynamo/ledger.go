// Package dynamo provides a DynamoDB-backed publish ledger. When several
// pools share one remote statistic store, the ledger's conditional write
// elects exactly one publisher per bootstrap; every losing master awaits
// the statistic like a worker. Each pool in such a deployment must carry
// a distinct id (bootstrap.WithPool) so the pools' acknowledgement keys
// stay disjoint on the shared store.
//
// Table schema:
//   - Partition key: run_id (string) - identifies the run
//   - Sort key: ordinal (number) - the bootstrap ordinal
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name regnet-claims \
//	  --attribute-definitions AttributeName=run_id,AttributeType=S AttributeName=ordinal,AttributeType=N \
//	  --key-schema AttributeName=run_id,KeyType=HASH AttributeName=ordinal,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/regnet/bootstrap"
)

// Client is the subset of the DynamoDB API the ledger uses.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Ledger implements bootstrap.Ledger on a DynamoDB table.
type Ledger struct {
	client    Client
	tableName string
	runID     string
}

var _ bootstrap.Ledger = (*Ledger)(nil)

// NewLedger creates a ledger over the given table. runID partitions
// claims so independent runs can share a table.
func NewLedger(client Client, tableName, runID string) *Ledger {
	return &Ledger{
		client:    client,
		tableName: tableName,
		runID:     runID,
	}
}

// NewDefault creates a ledger using the ambient AWS configuration chain.
func NewDefault(ctx context.Context, tableName, runID string) (*Ledger, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewLedger(dynamodb.NewFromConfig(cfg), tableName, runID), nil
}

// Claim attempts to register this caller as the ordinal's publisher.
// The conditional put succeeds for exactly one caller; everyone else
// gets (false, nil).
func (l *Ledger) Claim(ctx context.Context, ordinal int) (bool, error) {
	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item: map[string]types.AttributeValue{
			"run_id":  &types.AttributeValueMemberS{Value: l.runID},
			"ordinal": &types.AttributeValueMemberN{Value: strconv.Itoa(ordinal)},
		},
		ConditionExpression: aws.String("attribute_not_exists(ordinal)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, fmt.Errorf("claim ordinal %d: %w", ordinal, err)
	}
	return true, nil
}

// Release retires an ordinal's claim, typically after the run finishes
// so the table can be reused for a follow-up run under the same runID.
func (l *Ledger) Release(ctx context.Context, ordinal int) error {
	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"run_id":  &types.AttributeValueMemberS{Value: l.runID},
			"ordinal": &types.AttributeValueMemberN{Value: strconv.Itoa(ordinal)},
		},
	})
	if err != nil {
		return fmt.Errorf("release ordinal %d: %w", ordinal, err)
	}
	return nil
}
