package storage

import (
	"context"
	"time"

	"ChatRelay/logger"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Presence mirrors the in-process roster into redis with a TTL, so that
// operational tooling can see who is online without asking the gateway.
// 仅为镜像：进程内 Registry 才是 presence 的事实来源。
type Presence struct {
	rdb       *redis.Client
	gatewayID string
	ttl       time.Duration
}

// NewPresence returns a disabled mirror when addr is empty; every method is a
// no-op then. Failures are logged, never propagated to the caller.
func NewPresence(c Config, gatewayID string, ttl time.Duration) (*Presence, error) {
	if c.Addr == "" {
		return &Presence{}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Presence{rdb: rdb, gatewayID: gatewayID, ttl: ttl}, nil
}

// presence key: im:presence:<user>
// value: gateway_id, TTL 控制在线有效期
func presenceKey(user string) string { return "im:presence:" + user }

// Online sets the user as online and arms the TTL.
func (p *Presence) Online(ctx context.Context, user string) {
	if p.rdb == nil || user == "" {
		return
	}
	if err := p.rdb.Set(ctx, presenceKey(user), p.gatewayID, p.ttl).Err(); err != nil {
		logger.Warnf("[presence] online mirror failed user=%s err=%v", user, err)
	}
}

// Refresh renews the TTL; called on every pong.
func (p *Presence) Refresh(ctx context.Context, user string) {
	if p.rdb == nil || user == "" {
		return
	}
	if err := p.rdb.Expire(ctx, presenceKey(user), p.ttl).Err(); err != nil {
		logger.Warnf("[presence] refresh failed user=%s err=%v", user, err)
	}
}

// Offline deletes the key. Safe when the user was never marked online.
func (p *Presence) Offline(ctx context.Context, user string) {
	if p.rdb == nil || user == "" {
		return
	}
	if err := p.rdb.Del(ctx, presenceKey(user)).Err(); err != nil {
		logger.Warnf("[presence] offline mirror failed user=%s err=%v", user, err)
	}
}

// Lookup 查询用户是否在线（返回所在 gateway）
func (p *Presence) Lookup(ctx context.Context, user string) (gatewayID string, online bool, err error) {
	if p.rdb == nil {
		return "", false, nil
	}
	val, err := p.rdb.Get(ctx, presenceKey(user)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (p *Presence) Close() {
	if p.rdb != nil {
		_ = p.rdb.Close()
	}
}
