package message

import (
	"context"
	"time"

	"ChatRelay/module/message/model"
	"ChatRelay/service/mgo"
	"ChatRelay/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists chat messages in Mongo. It implements the gateway interface
// the chat service routes through (chat.MessageGateway).
type Store struct{}

func NewStore() *Store { return &Store{} }

// SaveMessage inserts one message and returns its generated id.
// 存储不可达时返回 ErrPersistenceUnavailable，由路由层决定是否投递。
func (s *Store) SaveMessage(ctx context.Context, senderID, recipientID, text string) (string, error) {
	db := mgo.GetDB()
	if db == nil {
		return "", errs.ErrPersistenceUnavailable
	}
	doc := model.Message{
		Sender:    senderID,
		Recipient: recipientID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	res, err := db.Collection(model.MsgTableName).InsertOne(ctx, doc)
	if err != nil {
		return "", errs.ErrPersistenceUnavailable.WithDetail(err.Error())
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errs.New("unexpected inserted id type")
	}
	return oid.Hex(), nil
}

// ListBetween returns the conversation between a and b, ascending by creation
// time, for the history REST endpoint.
func (s *Store) ListBetween(ctx context.Context, a, b string) ([]model.Message, error) {
	db := mgo.GetDB()
	if db == nil {
		return nil, errs.ErrPersistenceUnavailable
	}
	filter := bson.M{
		"sender":    bson.M{"$in": []string{a, b}},
		"recipient": bson.M{"$in": []string{a, b}},
	}
	cur, err := db.Collection(model.MsgTableName).
		Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return nil, errs.WrapMsg(err, "find messages")
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make([]model.Message, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode messages")
	}
	return out, nil
}
