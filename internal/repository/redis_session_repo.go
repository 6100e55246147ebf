package repository

import (
	"context"
	"errors"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/redis/go-redis/v9"
)

const redisSessionPrefix = "session:"

// RedisSessionRepo はRedisを使用したセッションストア。
// 有効期限はRedisのTTLで管理するため、期限切れセッションの掃除は不要。
type RedisSessionRepo struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisSessionRepo はRedisSessionRepoを生成する。
func NewRedisSessionRepo(client redis.UniversalClient) *RedisSessionRepo {
	return &RedisSessionRepo{
		client: client,
		prefix: redisSessionPrefix,
	}
}

func (r *RedisSessionRepo) key(token string) string {
	return r.prefix + token
}

// FindCtx は指定トークンのセッションデータを取得する。
func (r *RedisSessionRepo) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, translateError("failed to find session", err)
	}
	return data, true, nil
}

// CommitCtx はセッションデータを有効期限付きで保存する。
// 既に期限切れの場合はキーを削除する。
func (r *RedisSessionRepo) CommitCtx(ctx context.Context, token string, data []byte, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return r.DeleteCtx(ctx, token)
	}
	if err := r.client.Set(ctx, r.key(token), data, ttl).Err(); err != nil {
		return translateError("failed to commit session", err)
	}
	return nil
}

// DeleteCtx は指定トークンのセッションを削除する。
func (r *RedisSessionRepo) DeleteCtx(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, r.key(token)).Err(); err != nil {
		return translateError("failed to delete session", err)
	}
	return nil
}

// Find はscs.Storeを満たすためのコンテキストなし版。
func (r *RedisSessionRepo) Find(token string) ([]byte, bool, error) {
	return r.FindCtx(context.Background(), token)
}

// Commit はscs.Storeを満たすためのコンテキストなし版。
func (r *RedisSessionRepo) Commit(token string, data []byte, expiry time.Time) error {
	return r.CommitCtx(context.Background(), token, data, expiry)
}

// Delete はscs.Storeを満たすためのコンテキストなし版。
func (r *RedisSessionRepo) Delete(token string) error {
	return r.DeleteCtx(context.Background(), token)
}

// compile-time interface check
var _ scs.CtxStore = (*RedisSessionRepo)(nil)
