package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MsgTableName = "messages"

// Message 单聊消息主档。Created exactly once per routed frame; immutable after
// insert — the gateway only reads back the generated id for delivery.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Sender    string             `bson:"sender" json:"sender"`       // 发送者ID
	Recipient string             `bson:"recipient" json:"recipient"` // 接收者ID
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}
