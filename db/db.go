package db

import (
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Record is one transcription attempt, whatever its outcome.
type Record struct {
	PK            string    `dynamodbav:"PK" json:"id"`
	SongID        string    `dynamodbav:"SongID" json:"songId"`
	SourceTrackID string    `dynamodbav:"SourceTrackID" json:"sourceTrackId"`
	SourceClipID  string    `dynamodbav:"SourceClipID" json:"sourceClipId"`
	TrackID       string    `dynamodbav:"TrackID,omitempty" json:"trackId,omitempty"`
	ClipID        string    `dynamodbav:"ClipID,omitempty" json:"clipId,omitempty"`
	Status        string    `dynamodbav:"Status" json:"status"`
	State         string    `dynamodbav:"State" json:"state"`
	NotesInserted int       `dynamodbav:"NotesInserted" json:"notesInserted"`
	Error         string    `dynamodbav:"Error,omitempty" json:"error,omitempty"`
	CreatedAt     time.Time `dynamodbav:"CreatedAt" json:"createdAt"`
}

type History struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

func NewHistory(client dynamodbiface.DynamoDBAPI, table string) *History {
	return &History{client: client, table: table}
}

// Connect builds a History against a DynamoDB endpoint, e.g. dynamodb-local.
func Connect(endpoint string, table string) (*History, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:   aws.String("localhost"),
		Endpoint: aws.String(endpoint),
	})
	if err != nil {
		return nil, errors.Wrap(err, "Could not create a new DynamoDB session")
	}
	return NewHistory(dynamodb.New(sess), table), nil
}

// Put stores r, assigning an id and timestamp if they are missing.
func (h *History) Put(r *Record) error {
	if r.PK == "" {
		r.PK = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	item, err := dynamodbattribute.MarshalMap(r)
	if err != nil {
		return errors.Wrap(err, "could not marshal transcription record")
	}
	_, err = h.client.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(h.table),
		Item:      item,
	})
	return errors.Wrap(err, "Error from DynamoDB")
}

// Get returns nil if there is no record with that id.
func (h *History) Get(id string) (*Record, error) {
	out, err := h.client.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(h.table),
		Key: map[string]*dynamodb.AttributeValue{
			"PK": {S: aws.String(id)},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "Error from DynamoDB")
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var r Record
	if err := dynamodbattribute.UnmarshalMap(out.Item, &r); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal transcription record")
	}
	return &r, nil
}
