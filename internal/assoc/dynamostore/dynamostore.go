// Package dynamostore implements association storage in a DynamoDB table.
//
// The table must have a string partition key "model" and a string sort key
// "id".
package dynamostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/codegangsta/triphelper/internal/assoc"
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// item is the stored shape of a record
type item struct {
	Model  string `dynamodbav:"model"`
	ID     string `dynamodbav:"id"`
	Record string `dynamodbav:"record"`
}

// Store is an assoc.Store backed by a DynamoDB table.
type Store struct {
	client    API
	tableName string
}

var _ assoc.Store = (*Store)(nil)

// New creates a store over an existing table.
func New(client API, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
	}
}

func itemKey(k assoc.Key) map[string]dynamodbtypes.AttributeValue {
	return map[string]dynamodbtypes.AttributeValue{
		"model": &dynamodbtypes.AttributeValueMemberS{Value: string(k.Model)},
		"id":    &dynamodbtypes.AttributeValueMemberS{Value: k.ID},
	}
}

func (s *Store) Read(ctx context.Context, key assoc.Key) ([]byte, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}
	var it item
	if err := attributevalue.UnmarshalMap(result.Item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return []byte(it.Record), nil
}

func (s *Store) put(ctx context.Context, key assoc.Key, rec []byte, cond *string) error {
	av, err := attributevalue.MarshalMap(item{Model: string(key.Model), ID: key.ID, Record: string(rec)})
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: cond,
	})
	return err
}

func (s *Store) Write(ctx context.Context, key assoc.Key, rec []byte) error {
	if err := s.put(ctx, key, rec, nil); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, key assoc.Key, rec []byte) (bool, error) {
	err := s.put(ctx, key, rec, aws.String("attribute_not_exists(model)"))
	if err != nil {
		var ccf *dynamodbtypes.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert record: %w", err)
	}
	return true, nil
}

func (s *Store) Remove(ctx context.Context, key assoc.Key) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       itemKey(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// TableCreator is the subset of the DynamoDB client CreateTable uses.
type TableCreator interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// CreateTable creates an on-demand table with the key schema the store
// expects. A table that already exists is not an error.
func CreateTable(ctx context.Context, client TableCreator, tableName string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []dynamodbtypes.AttributeDefinition{
			{AttributeName: aws.String("model"), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String("id"), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []dynamodbtypes.KeySchemaElement{
			{AttributeName: aws.String("model"), KeyType: dynamodbtypes.KeyTypeHash},
			{AttributeName: aws.String("id"), KeyType: dynamodbtypes.KeyTypeRange},
		},
		BillingMode: dynamodbtypes.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *dynamodbtypes.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	return nil
}
