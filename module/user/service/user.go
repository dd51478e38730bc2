package service

import (
	"context"
	"time"

	usermodel "ChatRelay/module/user/model"
	"ChatRelay/service/mgo"
	"ChatRelay/tools/errs"
	security "ChatRelay/tools/security"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDuplicateUser = errs.NewCodeError(4001, "username already taken")
	ErrUserNotFound  = errs.NewCodeError(4002, "no user found")
	ErrWrongPassword = errs.NewCodeError(4003, "wrong password")
)

const bcryptCost = 10

func coll() (*mongo.Collection, error) {
	db := mgo.GetDB()
	if db == nil {
		return nil, errs.ErrPersistenceUnavailable
	}
	return db.Collection(usermodel.UserTableName), nil
}

// Register creates a user with a bcrypt-hashed password and mints a session
// token so the client is logged in right away（与登录同一套 JWT）.
func Register(ctx context.Context, opts security.Options, username, password string) (usermodel.User, string, error) {
	if username == "" || password == "" {
		return usermodel.User{}, "", errs.New("username/password empty")
	}

	users, err := coll()
	if err != nil {
		return usermodel.User{}, "", err
	}

	err = users.FindOne(ctx, bson.M{"username": username}).Err()
	if err == nil {
		return usermodel.User{}, "", ErrDuplicateUser
	}
	if err != mongo.ErrNoDocuments {
		return usermodel.User{}, "", errs.ErrPersistenceUnavailable.WithDetail(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return usermodel.User{}, "", errs.WrapMsg(err, "hash password")
	}

	now := time.Now()
	u := usermodel.User{
		Username:     username,
		PasswordHash: string(hash),
		CreateTime:   now,
		UpdateTime:   now,
	}
	res, err := users.InsertOne(ctx, u)
	if err != nil {
		return usermodel.User{}, "", errs.ErrPersistenceUnavailable.WithDetail(err.Error())
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return usermodel.User{}, "", errs.New("unexpected inserted id type")
	}
	u.ID = oid
	token, _, err := security.Generate(opts, u.ID.Hex(), username)
	if err != nil {
		return usermodel.User{}, "", err
	}
	return u, token, nil
}

// Login verifies credentials and mints a token.
func Login(ctx context.Context, opts security.Options, username, password string) (usermodel.User, string, error) {
	users, err := coll()
	if err != nil {
		return usermodel.User{}, "", err
	}

	var u usermodel.User
	err = users.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return usermodel.User{}, "", ErrUserNotFound
	}
	if err != nil {
		return usermodel.User{}, "", errs.ErrPersistenceUnavailable.WithDetail(err.Error())
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return usermodel.User{}, "", ErrWrongPassword
	}
	token, _, err := security.Generate(opts, u.ID.Hex(), username)
	if err != nil {
		return usermodel.User{}, "", err
	}
	return u, token, nil
}

// ListAll 返回所有用户（仅 id + username 投影）
func ListAll(ctx context.Context) ([]usermodel.Summary, error) {
	users, err := coll()
	if err != nil {
		return nil, err
	}
	cur, err := users.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1, "username": 1}))
	if err != nil {
		return nil, errs.ErrPersistenceUnavailable.WithDetail(err.Error())
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make([]usermodel.Summary, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode users")
	}
	return out, nil
}
