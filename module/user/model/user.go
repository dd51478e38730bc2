package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const UserTableName = "users"

// User 用户主档。Password 只存 bcrypt hash，永不出库到 API 层。
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"password" json:"-"`
	CreateTime   time.Time          `bson:"create_time" json:"-"`
	UpdateTime   time.Time          `bson:"update_time" json:"-"`
}

// Summary is the projection exposed by GET /users: id + username only.
type Summary struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Username string             `bson:"username" json:"username"`
}
