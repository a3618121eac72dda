package device

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hearthwire/hearth-core/internal/infrastructure/config"
)

// Partition key prefixes. Device records and preference documents share
// one table, discriminated by prefix.
const (
	devicePKPrefix = "device#"
	prefPKPrefix   = "pref#"
)

// DynamoStore implements Store on a single DynamoDB table.
//
// The table uses one string partition key "pk" and no sort key. Writes
// are wholesale PutItem upserts, which are atomic per key: concurrent
// telemetry for the same device resolves last-writer-wins without any
// locking on our side.
type DynamoStore struct {
	client *dynamodb.Client
	table  string
}

// deviceItem is a Record with its partition key.
type deviceItem struct {
	PK string `dynamodbav:"pk"`
	Record
}

// prefItem is a PreferenceDocument with its partition key.
type prefItem struct {
	PK string `dynamodbav:"pk"`
	PreferenceDocument
}

// NewDynamoStore creates a DynamoDB-backed device state store.
//
// Incomplete AWS configuration returns ErrStoreUnavailable: the caller
// logs it and runs without persistence rather than refusing to start.
func NewDynamoStore(ctx context.Context, cfg config.DynamoDBConfig) (*DynamoStore, error) {
	if !cfg.Complete() {
		return nil, fmt.Errorf("%w: incomplete aws configuration", ErrStoreUnavailable)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &DynamoStore{client: client, table: cfg.Table}, nil
}

// ListDevices scans the table for all device records.
func (s *DynamoStore) ListDevices(ctx context.Context) ([]Record, error) {
	var records []Record

	input := &dynamodb.ScanInput{
		TableName:        aws.String(s.table),
		FilterExpression: aws.String("begins_with(pk, :prefix)"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":prefix": &ddbtypes.AttributeValueMemberS{Value: devicePKPrefix},
		},
	}

	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning devices: %w", ErrStoreUnavailable, err)
		}

		var items []deviceItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshalling device records: %w", err)
		}
		for _, item := range items {
			records = append(records, item.Record)
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// GetDevice retrieves one device record by ID.
func (s *DynamoStore) GetDevice(ctx context.Context, deviceID string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       pkKey(devicePKPrefix + deviceID),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: getting device: %w", ErrStoreUnavailable, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrDeviceNotFound
	}

	var item deviceItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshalling device record: %w", err)
	}
	return &item.Record, nil
}

// PutDevice upserts a device record.
func (s *DynamoStore) PutDevice(ctx context.Context, rec Record) error {
	item, err := attributevalue.MarshalMap(deviceItem{
		PK:     devicePKPrefix + rec.DeviceID,
		Record: rec,
	})
	if err != nil {
		return fmt.Errorf("marshalling device record: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("%w: putting device: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// SavePreferences upserts a user's preference document.
func (s *DynamoStore) SavePreferences(ctx context.Context, doc PreferenceDocument) error {
	item, err := attributevalue.MarshalMap(prefItem{
		PK:                 prefPKPrefix + doc.UserID,
		PreferenceDocument: doc,
	})
	if err != nil {
		return fmt.Errorf("marshalling preferences: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("%w: putting preferences: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// GetPreferences retrieves a user's preference document.
func (s *DynamoStore) GetPreferences(ctx context.Context, userID string) (*PreferenceDocument, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       pkKey(prefPKPrefix + userID),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: getting preferences: %w", ErrStoreUnavailable, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrDeviceNotFound
	}

	var item prefItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshalling preferences: %w", err)
	}
	return &item.PreferenceDocument, nil
}

// HealthCheck verifies the table is reachable.
func (s *DynamoStore) HealthCheck(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// pkKey builds a primary key map for GetItem.
func pkKey(pk string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"pk": &ddbtypes.AttributeValueMemberS{Value: pk},
	}
}
