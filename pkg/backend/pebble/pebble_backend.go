package pebble

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/erain9/otcbook/pkg/core"
)

// Key layout:
//
//	o:<id>     order JSON
//	oi:<seq>   order id, insertion index
//	t:<seq>    trade JSON, insertion order
//	k:<addr>   token JSON, addr lowercased
//	ki:<seq>   token addr, insertion index
//	i:<id>     intent JSON
//	ii:<seq>   intent id, insertion index
//
// Sequence numbers are 8-byte big-endian so lexicographic key order is
// insertion order.
const (
	orderPrefix       = "o:"
	orderIndexPrefix  = "oi:"
	tradePrefix       = "t:"
	tokenPrefix       = "k:"
	tokenIndexPrefix  = "ki:"
	intentPrefix      = "i:"
	intentIndexPrefix = "ii:"
)

// PebbleBackend implements the core.Backend interface with a pebble
// key-value store. All writes are synced before they return, so a
// record that was acknowledged survives an immediate crash.
type PebbleBackend struct {
	mu  sync.Mutex
	db  *pebble.DB
	seq uint64
}

// NewPebbleBackend opens (or creates) a pebble database at path
func NewPebbleBackend(path string) (*PebbleBackend, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, storeErr("open", err)
	}

	b := &PebbleBackend{db: db}
	b.seq, err = b.lastSeq()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return b, nil
}

// lastSeq scans the insertion indexes for the highest used sequence
func (b *PebbleBackend) lastSeq() (uint64, error) {
	var max uint64
	for _, prefix := range []string{orderIndexPrefix, tradePrefix, tokenIndexPrefix, intentIndexPrefix} {
		iter, err := b.db.NewIter(prefixBounds(prefix))
		if err != nil {
			return 0, storeErr("iter", err)
		}
		if iter.Last() {
			key := iter.Key()
			if len(key) >= len(prefix)+8 {
				seq := binary.BigEndian.Uint64(key[len(prefix):])
				if seq > max {
					max = seq
				}
			}
		}
		if err := iter.Close(); err != nil {
			return 0, storeErr("iter close", err)
		}
	}
	return max, nil
}

func (b *PebbleBackend) nextSeqLocked() []byte {
	b.seq++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, b.seq)
	return buf
}

func prefixBounds(prefix string) *pebble.IterOptions {
	lower := []byte(prefix)
	upper := []byte(prefix)
	upper[len(upper)-1]++
	return &pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	}
}

func seqKey(prefix string, seq []byte) []byte {
	return append([]byte(prefix), seq...)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", core.ErrStore, op, err)
}

// GetOrder retrieves an order by ID, nil if absent
func (b *PebbleBackend) GetOrder(orderID string) *core.Order {
	data, closer, err := b.db.Get([]byte(orderPrefix + orderID))
	if err != nil {
		return nil
	}
	defer closer.Close()

	var order core.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil
	}
	return &order
}

// StoreOrder stores a new order and its insertion-index entry
func (b *PebbleBackend) StoreOrder(order *core.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := []byte(orderPrefix + order.ID())
	if _, closer, err := b.db.Get(key); err == nil {
		_ = closer.Close()
		return core.ErrOrderExists
	} else if err != pebble.ErrNotFound {
		return storeErr("get order", err)
	}

	data, err := json.Marshal(order)
	if err != nil {
		return storeErr("marshal order", err)
	}

	batch := b.db.NewBatch()
	if err := batch.Set(key, data, nil); err != nil {
		return storeErr("put order", err)
	}
	if err := batch.Set(seqKey(orderIndexPrefix, b.nextSeqLocked()), []byte(order.ID()), nil); err != nil {
		return storeErr("put order index", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return storeErr("commit order", err)
	}
	return nil
}

// UpdateOrder replaces an existing order
func (b *PebbleBackend) UpdateOrder(order *core.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := []byte(orderPrefix + order.ID())
	if _, closer, err := b.db.Get(key); err != nil {
		if err == pebble.ErrNotFound {
			return core.ErrNonexistentOrder
		}
		return storeErr("get order", err)
	} else {
		_ = closer.Close()
	}

	data, err := json.Marshal(order)
	if err != nil {
		return storeErr("marshal order", err)
	}

	if err := b.db.Set(key, data, pebble.Sync); err != nil {
		return storeErr("put order", err)
	}
	return nil
}

// ListOrders returns all orders in insertion order
func (b *PebbleBackend) ListOrders() []*core.Order {
	iter, err := b.db.NewIter(prefixBounds(orderIndexPrefix))
	if err != nil {
		return nil
	}
	defer iter.Close()

	var orders []*core.Order
	for iter.First(); iter.Valid(); iter.Next() {
		if order := b.GetOrder(string(iter.Value())); order != nil {
			orders = append(orders, order)
		}
	}
	return orders
}

// ApplyFill writes the updated order and the trade in one synced batch
func (b *PebbleBackend) ApplyFill(order *core.Order, trade *core.Trade) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := []byte(orderPrefix + order.ID())
	if _, closer, err := b.db.Get(key); err != nil {
		if err == pebble.ErrNotFound {
			return core.ErrNonexistentOrder
		}
		return storeErr("get order", err)
	} else {
		_ = closer.Close()
	}

	orderData, err := json.Marshal(order)
	if err != nil {
		return storeErr("marshal order", err)
	}
	tradeData, err := json.Marshal(trade)
	if err != nil {
		return storeErr("marshal trade", err)
	}

	batch := b.db.NewBatch()
	if err := batch.Set(key, orderData, nil); err != nil {
		return storeErr("put order", err)
	}
	if err := batch.Set(seqKey(tradePrefix, b.nextSeqLocked()), tradeData, nil); err != nil {
		return storeErr("put trade", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return storeErr("commit fill", err)
	}
	return nil
}

// ListTrades returns all trades in insertion order
func (b *PebbleBackend) ListTrades() []*core.Trade {
	iter, err := b.db.NewIter(prefixBounds(tradePrefix))
	if err != nil {
		return nil
	}
	defer iter.Close()

	var trades []*core.Trade
	for iter.First(); iter.Valid(); iter.Next() {
		var trade core.Trade
		if err := json.Unmarshal(iter.Value(), &trade); err != nil {
			continue
		}
		trades = append(trades, &trade)
	}
	return trades
}

// StoreToken stores a registry entry, enforcing case-insensitive
// uniqueness on the token address
func (b *PebbleBackend) StoreToken(info *core.TokenInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	addr := core.NormalizeAddress(info.Token)
	key := []byte(tokenPrefix + addr)
	if _, closer, err := b.db.Get(key); err == nil {
		_ = closer.Close()
		return core.ErrTokenExists
	} else if err != pebble.ErrNotFound {
		return storeErr("get token", err)
	}

	data, err := json.Marshal(info)
	if err != nil {
		return storeErr("marshal token", err)
	}

	batch := b.db.NewBatch()
	if err := batch.Set(key, data, nil); err != nil {
		return storeErr("put token", err)
	}
	if err := batch.Set(seqKey(tokenIndexPrefix, b.nextSeqLocked()), []byte(addr), nil); err != nil {
		return storeErr("put token index", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return storeErr("commit token", err)
	}
	return nil
}

// GetToken retrieves a registry entry by address, case-insensitively
func (b *PebbleBackend) GetToken(token string) *core.TokenInfo {
	data, closer, err := b.db.Get([]byte(tokenPrefix + core.NormalizeAddress(token)))
	if err != nil {
		return nil
	}
	defer closer.Close()

	var info core.TokenInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil
	}
	return &info
}

// ListTokens returns all registry entries in insertion order
func (b *PebbleBackend) ListTokens() []*core.TokenInfo {
	iter, err := b.db.NewIter(prefixBounds(tokenIndexPrefix))
	if err != nil {
		return nil
	}
	defer iter.Close()

	var tokens []*core.TokenInfo
	for iter.First(); iter.Valid(); iter.Next() {
		if info := b.GetToken(string(iter.Value())); info != nil {
			tokens = append(tokens, info)
		}
	}
	return tokens
}

// StoreIntent stores a new purchase intent
func (b *PebbleBackend) StoreIntent(intent *core.PurchaseIntent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := json.Marshal(intent)
	if err != nil {
		return storeErr("marshal intent", err)
	}

	batch := b.db.NewBatch()
	if err := batch.Set([]byte(intentPrefix+intent.ID), data, nil); err != nil {
		return storeErr("put intent", err)
	}
	if err := batch.Set(seqKey(intentIndexPrefix, b.nextSeqLocked()), []byte(intent.ID), nil); err != nil {
		return storeErr("put intent index", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return storeErr("commit intent", err)
	}
	return nil
}

// UpdateIntent replaces an existing purchase intent
func (b *PebbleBackend) UpdateIntent(intent *core.PurchaseIntent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := []byte(intentPrefix + intent.ID)
	if _, closer, err := b.db.Get(key); err != nil {
		if err == pebble.ErrNotFound {
			return core.ErrNonexistentIntent
		}
		return storeErr("get intent", err)
	} else {
		_ = closer.Close()
	}

	data, err := json.Marshal(intent)
	if err != nil {
		return storeErr("marshal intent", err)
	}

	if err := b.db.Set(key, data, pebble.Sync); err != nil {
		return storeErr("put intent", err)
	}
	return nil
}

// ListIntents returns all purchase intents in insertion order
func (b *PebbleBackend) ListIntents() []*core.PurchaseIntent {
	iter, err := b.db.NewIter(prefixBounds(intentIndexPrefix))
	if err != nil {
		return nil
	}
	defer iter.Close()

	var intents []*core.PurchaseIntent
	for iter.First(); iter.Valid(); iter.Next() {
		data, closer, err := b.db.Get(append([]byte(intentPrefix), iter.Value()...))
		if err != nil {
			continue
		}
		var intent core.PurchaseIntent
		err = json.Unmarshal(data, &intent)
		_ = closer.Close()
		if err != nil {
			continue
		}
		intents = append(intents, &intent)
	}
	return intents
}

// Close closes the underlying database
func (b *PebbleBackend) Close() error {
	return b.db.Close()
}

// Ensure PebbleBackend implements the Backend interface
var _ core.Backend = (*PebbleBackend)(nil)
