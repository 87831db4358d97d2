// Package dynamorepo stores sessions in DynamoDB.
//
// Expected table shape:
//
//	aws dynamodb create-table --table-name lambda_sessions \
//	    --attribute-definitions AttributeName=id,AttributeType=S AttributeName=sid,AttributeType=S \
//	    --key-schema AttributeName=id,KeyType=HASH \
//	    --global-secondary-indexes "IndexName=sid-index,KeySchema=[{AttributeName=sid,KeyType=HASH}],Projection={ProjectionType=KEYS_ONLY},..."
//	aws dynamodb update-time-to-live --table-name lambda_sessions \
//	    --time-to-live-specification 'Enabled=true,AttributeName=ttl'
package dynamorepo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
	"github.com/authgate/lambda-oidc-gateway/sessions"
)

// api is the slice of the DynamoDB client this repo uses.
type api interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ sessions.Repo = (*Repo)(nil)

// Repo is the DynamoDB implementation of sessions.Repo.
type Repo struct {
	client   api
	table    string
	sidIndex string
}

// New creates a Repo on the given table. sidIndex is the name of the global
// secondary index keyed by the provider session reference.
func New(client *dynamodb.Client, table, sidIndex string) *Repo {
	return &Repo{client: client, table: table, sidIndex: sidIndex}
}

// record is the stored item shape.
type record struct {
	ID       string        `dynamodbav:"id"`
	Sid      string        `dynamodbav:"sid"`
	Modified int64         `dynamodbav:"modified"`
	TTL      int64         `dynamodbav:"ttl"`
	Data     sessions.Data `dynamodbav:"data"`
}

func toRecord(s *sessions.Session) record {
	return record{
		ID:       s.ID,
		Sid:      s.ProviderRef,
		Modified: s.Modified,
		TTL:      s.TTL,
		Data:     s.Data,
	}
}

func (r record) toSession() *sessions.Session {
	return &sessions.Session{
		ID:          r.ID,
		ProviderRef: r.Sid,
		Modified:    r.Modified,
		TTL:         r.TTL,
		Data:        r.Data,
	}
}

// Get implements sessions.Repo.
func (r *Repo) Get(ctx context.Context, sessionID string) (*sessions.Session, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       sessionKey(sessionID),
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "dynamodb get %q", r.table)
	}
	if len(out.Item) == 0 {
		return nil, apperrors.ErrSessionNotFound
	}

	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, apperrors.Wrapf(err, "unmarshal session item")
	}
	return rec.toSession(), nil
}

// Put implements sessions.Repo.
func (r *Repo) Put(ctx context.Context, session *sessions.Session) error {
	item, err := attributevalue.MarshalMap(toRecord(session))
	if err != nil {
		return apperrors.Wrapf(err, "marshal session item")
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	}); err != nil {
		return apperrors.Wrapf(err, "dynamodb put %q", r.table)
	}
	return nil
}

// Delete implements sessions.Repo. DynamoDB deletes are idempotent, so a
// second delete of the same id succeeds.
func (r *Repo) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       sessionKey(sessionID),
	}); err != nil {
		return apperrors.Wrapf(err, "dynamodb delete %q", r.table)
	}
	return nil
}

// DeleteByProviderRef implements sessions.Repo: a keys-only query on the sid
// index followed by one delete per match.
func (r *Repo) DeleteByProviderRef(ctx context.Context, ref string) error {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(r.sidIndex),
		KeyConditionExpression: aws.String("sid = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: ref},
		},
	})
	if err != nil {
		return apperrors.Wrapf(err, "dynamodb query %q", r.sidIndex)
	}

	for _, item := range out.Items {
		var key struct {
			ID string `dynamodbav:"id"`
		}
		if err := attributevalue.UnmarshalMap(item, &key); err != nil {
			return apperrors.Wrapf(err, "unmarshal session key")
		}
		if err := r.Delete(ctx, key.ID); err != nil {
			return err
		}
	}
	return nil
}

func sessionKey(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: sessionID},
	}
}
