package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erain9/otcbook/pkg/core"
)

// RedisOptions represents configuration options for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

var defaultOptions = &RedisOptions{
	Addr:     "localhost:6379",
	Password: "",
	DB:       0,
}

// SetDefaultRedisOptions sets the default options for Redis connections
func SetDefaultRedisOptions(options *RedisOptions) {
	defaultOptions = options
}

// GetRedisClient creates a new Redis client using the default options
func GetRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     defaultOptions.Addr,
		Password: defaultOptions.Password,
		DB:       defaultOptions.DB,
	})
}

// RedisBackend implements the core.Backend interface with Redis
// storage. Order/trade pairs are written through MULTI/EXEC so a fill
// is never half-applied.
type RedisBackend struct {
	mu          sync.Mutex
	client      *redis.Client
	ctx         context.Context
	prefix      string
	orderSetKey string
	tradesKey   string
	tokensKey   string
	tokenSeqKey string
	intentsKey  string
	intentSeq   string
	logger      *zap.Logger
}

// NewRedisBackend creates a new instance of RedisBackend
func NewRedisBackend(client *redis.Client, prefix string, logger *zap.Logger) *RedisBackend {
	return &RedisBackend{
		client:      client,
		ctx:         context.Background(),
		prefix:      prefix,
		orderSetKey: fmt.Sprintf("%s:orders", prefix),
		tradesKey:   fmt.Sprintf("%s:trades", prefix),
		tokensKey:   fmt.Sprintf("%s:tokens", prefix),
		tokenSeqKey: fmt.Sprintf("%s:token_index", prefix),
		intentsKey:  fmt.Sprintf("%s:intents", prefix),
		intentSeq:   fmt.Sprintf("%s:intent_index", prefix),
		logger:      logger,
	}
}

func (b *RedisBackend) orderKey(orderID string) string {
	return fmt.Sprintf("%s:order:%s", b.prefix, orderID)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", core.ErrStore, op, err)
}

// GetOrder retrieves an order from Redis by its ID
func (b *RedisBackend) GetOrder(orderID string) *core.Order {
	data, err := b.client.Get(b.ctx, b.orderKey(orderID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			b.logger.Error("failed to get order",
				zap.String("orderID", orderID),
				zap.Error(err))
		}
		return nil
	}

	var order core.Order
	if err := json.Unmarshal(data, &order); err != nil {
		b.logger.Error("failed to unmarshal order",
			zap.String("orderID", orderID),
			zap.Error(err))
		return nil
	}

	return &order
}

// StoreOrder stores a new order in Redis
func (b *RedisBackend) StoreOrder(order *core.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := b.orderKey(order.ID())
	exists, err := b.client.Exists(b.ctx, key).Result()
	if err != nil {
		return storeErr("exists order", err)
	}
	if exists > 0 {
		return core.ErrOrderExists
	}

	data, err := json.Marshal(order)
	if err != nil {
		return storeErr("marshal order", err)
	}

	pipe := b.client.TxPipeline()
	pipe.Set(b.ctx, key, data, 0)
	pipe.RPush(b.ctx, b.orderSetKey, order.ID())
	if _, err := pipe.Exec(b.ctx); err != nil {
		return storeErr("put order", err)
	}
	return nil
}

// UpdateOrder updates an existing order in Redis
func (b *RedisBackend) UpdateOrder(order *core.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := b.orderKey(order.ID())
	exists, err := b.client.Exists(b.ctx, key).Result()
	if err != nil {
		return storeErr("exists order", err)
	}
	if exists == 0 {
		return core.ErrNonexistentOrder
	}

	data, err := json.Marshal(order)
	if err != nil {
		return storeErr("marshal order", err)
	}

	if err := b.client.Set(b.ctx, key, data, 0).Err(); err != nil {
		return storeErr("put order", err)
	}
	return nil
}

// ListOrders returns all orders in insertion order
func (b *RedisBackend) ListOrders() []*core.Order {
	ids, err := b.client.LRange(b.ctx, b.orderSetKey, 0, -1).Result()
	if err != nil {
		b.logger.Error("failed to list orders", zap.Error(err))
		return nil
	}

	orders := make([]*core.Order, 0, len(ids))
	for _, id := range ids {
		if order := b.GetOrder(id); order != nil {
			orders = append(orders, order)
		}
	}
	return orders
}

// ApplyFill updates the order and appends the trade in one transaction
func (b *RedisBackend) ApplyFill(order *core.Order, trade *core.Trade) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := b.orderKey(order.ID())
	exists, err := b.client.Exists(b.ctx, key).Result()
	if err != nil {
		return storeErr("exists order", err)
	}
	if exists == 0 {
		return core.ErrNonexistentOrder
	}

	orderData, err := json.Marshal(order)
	if err != nil {
		return storeErr("marshal order", err)
	}
	tradeData, err := json.Marshal(trade)
	if err != nil {
		return storeErr("marshal trade", err)
	}

	pipe := b.client.TxPipeline()
	pipe.Set(b.ctx, key, orderData, 0)
	pipe.RPush(b.ctx, b.tradesKey, tradeData)
	if _, err := pipe.Exec(b.ctx); err != nil {
		return storeErr("commit fill", err)
	}
	return nil
}

// ListTrades returns all trades in insertion order
func (b *RedisBackend) ListTrades() []*core.Trade {
	rows, err := b.client.LRange(b.ctx, b.tradesKey, 0, -1).Result()
	if err != nil {
		b.logger.Error("failed to list trades", zap.Error(err))
		return nil
	}

	trades := make([]*core.Trade, 0, len(rows))
	for _, row := range rows {
		var trade core.Trade
		if err := json.Unmarshal([]byte(row), &trade); err != nil {
			b.logger.Error("failed to unmarshal trade", zap.Error(err))
			continue
		}
		trades = append(trades, &trade)
	}
	return trades
}

// StoreToken stores a registry entry, enforcing case-insensitive
// uniqueness on the token address
func (b *RedisBackend) StoreToken(info *core.TokenInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	addr := core.NormalizeAddress(info.Token)
	data, err := json.Marshal(info)
	if err != nil {
		return storeErr("marshal token", err)
	}

	added, err := b.client.HSetNX(b.ctx, b.tokensKey, addr, data).Result()
	if err != nil {
		return storeErr("put token", err)
	}
	if !added {
		return core.ErrTokenExists
	}

	if err := b.client.RPush(b.ctx, b.tokenSeqKey, addr).Err(); err != nil {
		return storeErr("put token index", err)
	}
	return nil
}

// GetToken retrieves a registry entry by address, case-insensitively
func (b *RedisBackend) GetToken(token string) *core.TokenInfo {
	data, err := b.client.HGet(b.ctx, b.tokensKey, core.NormalizeAddress(token)).Bytes()
	if err != nil {
		if err != redis.Nil {
			b.logger.Error("failed to get token", zap.Error(err))
		}
		return nil
	}

	var info core.TokenInfo
	if err := json.Unmarshal(data, &info); err != nil {
		b.logger.Error("failed to unmarshal token", zap.Error(err))
		return nil
	}
	return &info
}

// ListTokens returns all registry entries in insertion order
func (b *RedisBackend) ListTokens() []*core.TokenInfo {
	addrs, err := b.client.LRange(b.ctx, b.tokenSeqKey, 0, -1).Result()
	if err != nil {
		b.logger.Error("failed to list tokens", zap.Error(err))
		return nil
	}

	tokens := make([]*core.TokenInfo, 0, len(addrs))
	for _, addr := range addrs {
		if info := b.GetToken(addr); info != nil {
			tokens = append(tokens, info)
		}
	}
	return tokens
}

// StoreIntent stores a new purchase intent
func (b *RedisBackend) StoreIntent(intent *core.PurchaseIntent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := json.Marshal(intent)
	if err != nil {
		return storeErr("marshal intent", err)
	}

	pipe := b.client.TxPipeline()
	pipe.HSet(b.ctx, b.intentsKey, intent.ID, data)
	pipe.RPush(b.ctx, b.intentSeq, intent.ID)
	if _, err := pipe.Exec(b.ctx); err != nil {
		return storeErr("put intent", err)
	}
	return nil
}

// UpdateIntent replaces an existing purchase intent
func (b *RedisBackend) UpdateIntent(intent *core.PurchaseIntent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	exists, err := b.client.HExists(b.ctx, b.intentsKey, intent.ID).Result()
	if err != nil {
		return storeErr("exists intent", err)
	}
	if !exists {
		return core.ErrNonexistentIntent
	}

	data, err := json.Marshal(intent)
	if err != nil {
		return storeErr("marshal intent", err)
	}

	if err := b.client.HSet(b.ctx, b.intentsKey, intent.ID, data).Err(); err != nil {
		return storeErr("put intent", err)
	}
	return nil
}

// ListIntents returns all purchase intents in insertion order
func (b *RedisBackend) ListIntents() []*core.PurchaseIntent {
	ids, err := b.client.LRange(b.ctx, b.intentSeq, 0, -1).Result()
	if err != nil {
		b.logger.Error("failed to list intents", zap.Error(err))
		return nil
	}

	intents := make([]*core.PurchaseIntent, 0, len(ids))
	for _, id := range ids {
		data, err := b.client.HGet(b.ctx, b.intentsKey, id).Bytes()
		if err != nil {
			continue
		}
		var intent core.PurchaseIntent
		if err := json.Unmarshal(data, &intent); err != nil {
			continue
		}
		intents = append(intents, &intent)
	}
	return intents
}

// Close closes the Redis client
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// Ensure RedisBackend implements the Backend interface
var _ core.Backend = (*RedisBackend)(nil)
