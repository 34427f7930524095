package wallet

import (
	"context"
	"errors"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/peerwallet/internal/infra"
)

type storeFactory func(t *testing.T) Store

func backends(t *testing.T) map[string]storeFactory {
	t.Helper()
	b := map[string]storeFactory{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"redis": func(t *testing.T) Store {
			mr, err := miniredis.Run()
			require.NoError(t, err)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() {
				client.Close()
				mr.Close()
			})
			return NewRedisStore(client)
		},
	}
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		b["postgres"] = func(t *testing.T) Store {
			ctx := context.Background()
			require.NoError(t, infra.Migrate(ctx, url))
			pool, err := pgxpool.New(ctx, url)
			require.NoError(t, err)
			t.Cleanup(pool.Close)
			return NewPostgresStore(pool)
		}
	}
	return b
}

func openWithBalance(t *testing.T, s Store, balance int64) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()
	require.NoError(t, s.Open(ctx, id))
	if balance > 0 {
		_, err := s.Increment(ctx, id, balance)
		require.NoError(t, err)
	}
	return id
}

func balanceOf(t *testing.T, s Store, id string) int64 {
	t.Helper()
	bal, err := s.Balance(context.Background(), id)
	require.NoError(t, err)
	return bal
}

func TestStores(t *testing.T) {
	for name, factory := range backends(t) {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Run("open starts at zero and is idempotent", func(t *testing.T) {
				s := factory(t)
				id := openWithBalance(t, s, 25)
				require.NoError(t, s.Open(context.Background(), id))
				assert.Equal(t, int64(25), balanceOf(t, s, id))

				fresh := openWithBalance(t, s, 0)
				assert.Equal(t, int64(0), balanceOf(t, s, fresh))
			})

			t.Run("unknown account", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				known := openWithBalance(t, s, 10)
				missing := uuid.NewString()

				_, err := s.Balance(ctx, missing)
				assert.ErrorIs(t, err, ErrAccountNotFound)
				_, err = s.Increment(ctx, missing, 5)
				assert.ErrorIs(t, err, ErrAccountNotFound)
				_, err = s.Decrement(ctx, missing, 5)
				assert.ErrorIs(t, err, ErrAccountNotFound)
				_, err = s.Transfer(ctx, known, missing, 5)
				assert.ErrorIs(t, err, ErrAccountNotFound)
				_, err = s.Transfer(ctx, missing, known, 5)
				assert.ErrorIs(t, err, ErrAccountNotFound)
				assert.Equal(t, int64(10), balanceOf(t, s, known))
			})

			t.Run("non-positive amounts are rejected without mutation", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				a := openWithBalance(t, s, 50)
				b := openWithBalance(t, s, 0)

				for _, amount := range []int64{0, -1} {
					_, err := s.Increment(ctx, a, amount)
					assert.ErrorIs(t, err, ErrInvalidAmount)
					_, err = s.Decrement(ctx, a, amount)
					assert.ErrorIs(t, err, ErrInvalidAmount)
					_, err = s.Transfer(ctx, a, b, amount)
					assert.ErrorIs(t, err, ErrInvalidAmount)
				}
				assert.Equal(t, int64(50), balanceOf(t, s, a))
				assert.Equal(t, int64(0), balanceOf(t, s, b))
			})

			t.Run("decrement checks sufficiency", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				a := openWithBalance(t, s, 30)

				bal, err := s.Decrement(ctx, a, 30)
				require.NoError(t, err)
				assert.Equal(t, int64(0), bal)

				_, err = s.Decrement(ctx, a, 1)
				assert.ErrorIs(t, err, ErrInsufficientFunds)
				assert.Equal(t, int64(0), balanceOf(t, s, a))
			})

			t.Run("transfer conserves funds", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				alice := openWithBalance(t, s, 100)
				bob := openWithBalance(t, s, 10)

				res, err := s.Transfer(ctx, alice, bob, 40)
				require.NoError(t, err)
				assert.Equal(t, TransferResult{FromBalance: 60, ToBalance: 50}, res)
				assert.Equal(t, int64(60), balanceOf(t, s, alice))
				assert.Equal(t, int64(50), balanceOf(t, s, bob))

				_, err = s.Transfer(ctx, alice, bob, 1000)
				assert.ErrorIs(t, err, ErrInsufficientFunds)
				assert.Equal(t, int64(60), balanceOf(t, s, alice))
				assert.Equal(t, int64(50), balanceOf(t, s, bob))
			})

			t.Run("self transfer is rejected", func(t *testing.T) {
				s := factory(t)
				a := openWithBalance(t, s, 10)
				_, err := s.Transfer(context.Background(), a, a, 5)
				assert.ErrorIs(t, err, ErrSameAccount)
				assert.Equal(t, int64(10), balanceOf(t, s, a))
			})

			t.Run("drop removes the wallet", func(t *testing.T) {
				s := factory(t)
				a := openWithBalance(t, s, 0)
				require.NoError(t, s.Drop(context.Background(), a))
				_, err := s.Balance(context.Background(), a)
				assert.ErrorIs(t, err, ErrAccountNotFound)
			})

			t.Run("concurrent transfers drain sender exactly", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				const n = 20
				const amount = int64(7)
				sender := openWithBalance(t, s, n*amount)
				receivers := make([]string, n)
				for i := range receivers {
					receivers[i] = openWithBalance(t, s, 0)
				}

				var wg sync.WaitGroup
				errs := make(chan error, n)
				for i := 0; i < n; i++ {
					wg.Add(1)
					go func(to string) {
						defer wg.Done()
						if _, err := s.Transfer(ctx, sender, to, amount); err != nil {
							errs <- err
						}
					}(receivers[i])
				}
				wg.Wait()
				close(errs)
				for err := range errs {
					t.Errorf("transfer failed: %v", err)
				}

				assert.Equal(t, int64(0), balanceOf(t, s, sender))
				for _, r := range receivers {
					assert.Equal(t, amount, balanceOf(t, s, r))
				}
			})

			t.Run("oversubscribed transfers never overdraw", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				const funded = 10
				const attempts = 25
				const amount = int64(3)
				sender := openWithBalance(t, s, funded*amount)
				receiver := openWithBalance(t, s, 0)

				var ok, short atomic.Int64
				var wg sync.WaitGroup
				for i := 0; i < attempts; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := s.Transfer(ctx, sender, receiver, amount)
						switch {
						case err == nil:
							ok.Add(1)
						case errors.Is(err, ErrInsufficientFunds):
							short.Add(1)
						default:
							t.Errorf("unexpected error: %v", err)
						}
					}()
				}
				wg.Wait()

				assert.Equal(t, int64(funded), ok.Load())
				assert.Equal(t, int64(attempts-funded), short.Load())
				assert.Equal(t, int64(0), balanceOf(t, s, sender))
				assert.Equal(t, funded*amount, balanceOf(t, s, receiver))
			})

			t.Run("opposite direction transfers do not deadlock", func(t *testing.T) {
				s := factory(t)
				ctx := context.Background()
				a := openWithBalance(t, s, 500)
				b := openWithBalance(t, s, 500)

				done := make(chan struct{})
				go func() {
					defer close(done)
					var wg sync.WaitGroup
					for i := 0; i < 50; i++ {
						wg.Add(2)
						go func() {
							defer wg.Done()
							_, _ = s.Transfer(ctx, a, b, 9)
						}()
						go func() {
							defer wg.Done()
							_, _ = s.Transfer(ctx, b, a, 11)
						}()
					}
					wg.Wait()
				}()

				select {
				case <-done:
				case <-time.After(20 * time.Second):
					t.Fatal("transfers did not finish, possible deadlock")
				}

				balA, balB := balanceOf(t, s, a), balanceOf(t, s, b)
				assert.Equal(t, int64(1000), balA+balB)
				assert.GreaterOrEqual(t, balA, int64(0))
				assert.GreaterOrEqual(t, balB, int64(0))
			})
		})
	}
}

func TestMemoryStoreRejectsOverflow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := openWithBalance(t, s, 1<<62)
	bal, err := s.Increment(ctx, a, 1<<62-1)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), bal)
	_, err = s.Increment(ctx, a, 1)
	assert.ErrorIs(t, err, ErrBalanceOverflow)
	assert.Equal(t, int64(math.MaxInt64), balanceOf(t, s, a))
}

func TestRedisStoreRejectsAmountsBeyondScriptPrecision(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client)
	a := openWithBalance(t, s, 0)
	_, err = s.Increment(context.Background(), a, maxRedisBalance+1)
	assert.ErrorIs(t, err, ErrBalanceOverflow)
	assert.Equal(t, int64(0), balanceOf(t, s, a))
}

func TestPostgresStoreIgnoresRequestCancellation(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, infra.Migrate(context.Background(), url))
	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	defer pool.Close()
	s := NewPostgresStore(pool)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, b := uuid.NewString(), uuid.NewString()
	require.NoError(t, s.Open(ctx, a))
	require.NoError(t, s.Open(ctx, b))
	_, err = s.Increment(ctx, a, 30)
	require.NoError(t, err)
	res, err := s.Transfer(ctx, a, b, 10)
	require.NoError(t, err)
	assert.Equal(t, TransferResult{FromBalance: 20, ToBalance: 10}, res)

	bal, err := s.Balance(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal)

	require.NoError(t, s.Drop(ctx, a))
	_, err = s.Balance(context.Background(), a)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
