package cache

// lruNode is a node in a doubly-linked LRU list.
// It carries the key for O(1) deletion from the owning map and the value.
type lruNode[K comparable, V any] struct {
	key   K
	value V
	prev  *lruNode[K, V]
	next  *lruNode[K, V]
}

// lruList is a doubly-linked list ordered by recency.
// The head is the most recently used node, the tail the least recently used.
type lruList[K comparable, V any] struct {
	head *lruNode[K, V]
	tail *lruNode[K, V]
	len  int
}

// Len returns the number of nodes in the list.
func (l *lruList[K, V]) Len() int {
	return l.len
}

// PushFront inserts a new node at the front and returns it.
func (l *lruList[K, V]) PushFront(key K, value V) *lruNode[K, V] {
	node := &lruNode[K, V]{key: key, value: value, next: l.head}
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.len++
	return node
}

// MoveToFront marks node as most recently used.
func (l *lruList[K, V]) MoveToFront(node *lruNode[K, V]) {
	if node == nil || node == l.head {
		return
	}
	l.unlink(node)
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.len++
}

// Remove unlinks node from the list.
func (l *lruList[K, V]) Remove(node *lruNode[K, V]) {
	if node != nil {
		l.unlink(node)
	}
}

// Oldest returns the least recently used node, or nil.
func (l *lruList[K, V]) Oldest() *lruNode[K, V] {
	return l.tail
}

// Clear drops every node.
func (l *lruList[K, V]) Clear() {
	l.head = nil
	l.tail = nil
	l.len = 0
}

func (l *lruList[K, V]) unlink(node *lruNode[K, V]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.len--
}
