package wallet

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "wallet:balance:"

	// Balances are compared inside Lua, whose numbers are doubles; keep every
	// value exactly representable.
	maxRedisBalance = 1<<53 - 1

	statusOK           = 0
	statusNotFound     = -1
	statusInsufficient = -2
	statusOverflow     = -3
)

// Each script checks and mutates in one server-side step. Redis runs a script
// to completion before serving any other command, and every failure path
// returns before the first write.
var (
	incrementScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then return {-1, 0} end
if tonumber(current) > tonumber(ARGV[2]) - tonumber(ARGV[1]) then return {-3, tonumber(current)} end
return {0, redis.call('INCRBY', KEYS[1], ARGV[1])}
`)

	decrementScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then return {-1, 0} end
if tonumber(current) < tonumber(ARGV[1]) then return {-2, tonumber(current)} end
return {0, redis.call('DECRBY', KEYS[1], ARGV[1])}
`)

	transferScript = redis.NewScript(`
local from = redis.call('GET', KEYS[1])
if not from then return {-1, 0, 0} end
local to = redis.call('GET', KEYS[2])
if not to then return {-1, 0, 0} end
local amount = tonumber(ARGV[1])
if tonumber(from) < amount then return {-2, tonumber(from), tonumber(to)} end
if tonumber(to) > tonumber(ARGV[2]) - amount then return {-3, tonumber(from), tonumber(to)} end
local fromBalance = redis.call('DECRBY', KEYS[1], ARGV[1])
local toBalance = redis.call('INCRBY', KEYS[2], ARGV[1])
return {0, fromBalance, toBalance}
`)
)

// RedisStore keeps each balance in its own Redis key and mutates it through
// Lua scripts.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed wallet store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(accountID string) string {
	return redisKeyPrefix + accountID
}

func (s *RedisStore) Open(ctx context.Context, accountID string) error {
	return s.client.SetNX(ctx, redisKey(accountID), 0, 0).Err()
}

func (s *RedisStore) Drop(ctx context.Context, accountID string) error {
	return s.client.Del(ctx, redisKey(accountID)).Err()
}

func (s *RedisStore) Balance(ctx context.Context, accountID string) (int64, error) {
	balance, err := s.client.Get(ctx, redisKey(accountID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrAccountNotFound
	}
	return balance, err
}

func (s *RedisStore) Increment(ctx context.Context, accountID string, amount int64) (int64, error) {
	if err := checkRedisAmount(amount); err != nil {
		return 0, err
	}
	out, err := s.run(ctx, incrementScript, []string{redisKey(accountID)}, amount)
	if err != nil {
		return 0, err
	}
	if err := statusError(out[0]); err != nil {
		return 0, err
	}
	return out[1], nil
}

func (s *RedisStore) Decrement(ctx context.Context, accountID string, amount int64) (int64, error) {
	if err := checkRedisAmount(amount); err != nil {
		return 0, err
	}
	out, err := s.run(ctx, decrementScript, []string{redisKey(accountID)}, amount)
	if err != nil {
		return 0, err
	}
	if err := statusError(out[0]); err != nil {
		return 0, err
	}
	return out[1], nil
}

func (s *RedisStore) Transfer(ctx context.Context, fromID, toID string, amount int64) (TransferResult, error) {
	if err := checkTransfer(fromID, toID, amount); err != nil {
		return TransferResult{}, err
	}
	if err := checkRedisAmount(amount); err != nil {
		return TransferResult{}, err
	}
	out, err := s.run(ctx, transferScript, []string{redisKey(fromID), redisKey(toID)}, amount)
	if err != nil {
		return TransferResult{}, err
	}
	if err := statusError(out[0]); err != nil {
		return TransferResult{}, err
	}
	return TransferResult{FromBalance: out[1], ToBalance: out[2]}, nil
}

func (s *RedisStore) run(ctx context.Context, script *redis.Script, keys []string, amount int64) ([]int64, error) {
	out, err := script.Run(ctx, s.client, keys, strconv.FormatInt(amount, 10), strconv.FormatInt(maxRedisBalance, 10)).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("wallet script: %w", err)
	}
	if len(out) < 2 {
		return nil, fmt.Errorf("wallet script: unexpected reply %v", out)
	}
	return out, nil
}

func checkRedisAmount(amount int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount > maxRedisBalance {
		return ErrBalanceOverflow
	}
	return nil
}

func statusError(status int64) error {
	switch status {
	case statusOK:
		return nil
	case statusNotFound:
		return ErrAccountNotFound
	case statusInsufficient:
		return ErrInsufficientFunds
	case statusOverflow:
		return ErrBalanceOverflow
	default:
		return fmt.Errorf("wallet script: unknown status %d", status)
	}
}
