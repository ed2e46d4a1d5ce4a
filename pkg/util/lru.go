package util

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// LRUCache 是一个支持泛型、线程安全的 LRU 缓存。
// Capacity 限制元素数量，TTL 控制元素的存活时间（0 表示永不过期）。
type LRUCache[K comparable, V any] struct {
	capacity int
	ttl      time.Duration
	ll       *list.List
	items    map[K]*list.Element
	lock     sync.Mutex
}

type lruEntry[K comparable, V any] struct {
	key        K
	value      V
	expiration time.Time
}

// NewLRU 创建一个容量为 capacity 的 LRU 缓存实例。
func NewLRU[K comparable, V any](capacity int, ttl time.Duration) (*LRUCache[K, V], error) {
	if capacity <= 0 {
		return nil, errors.New("lru: capacity must be positive")
	}
	return &LRUCache[K, V]{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		items:    make(map[K]*list.Element, capacity),
	}, nil
}

// Get 返回缓存中的值。过期的元素视为不存在并被移除。
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := el.Value.(*lruEntry[K, V])
	if !ent.expiration.IsZero() && time.Now().After(ent.expiration) {
		c.ll.Remove(el)
		delete(c.items, key)
		return zero, false
	}
	c.ll.MoveToFront(el)
	return ent.value, true
}

// Set 写入或更新一个键值，超出容量时淘汰最久未使用的元素。
func (c *LRUCache[K, V]) Set(key K, value V) {
	c.lock.Lock()
	defer c.lock.Unlock()

	var expiration time.Time
	if c.ttl > 0 {
		expiration = time.Now().Add(c.ttl)
	}

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*lruEntry[K, V])
		ent.value = value
		ent.expiration = expiration
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&lruEntry[K, V]{key: key, value: value, expiration: expiration})
	c.items[key] = el

	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry[K, V]).key)
		}
	}
}

// Len 返回缓存中当前的元素数量。
func (c *LRUCache[K, V]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.ll.Len()
}
