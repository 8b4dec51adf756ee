package cache

import "testing"

// =============================================================================
// LRU List Tests
// =============================================================================

func TestLRUList_Order(t *testing.T) {
	var l lruList[int, string]
	n1 := l.PushFront(1, "a")
	n2 := l.PushFront(2, "b")
	n3 := l.PushFront(3, "c")

	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}
	if l.head != n3 || l.tail != n1 {
		t.Fatal("head should be newest, tail oldest")
	}

	l.MoveToFront(n1)
	if l.head != n1 || l.tail != n2 {
		t.Error("MoveToFront(n1) should make n2 the oldest")
	}
	if l.Len() != 3 {
		t.Errorf("Len() after MoveToFront = %d, want 3", l.Len())
	}

	l.Remove(n2)
	if l.Oldest() != n3 {
		t.Error("after removing n2, n3 should be oldest")
	}

	l.Clear()
	if l.Len() != 0 || l.Oldest() != nil {
		t.Error("Clear should empty the list")
	}
}

// =============================================================================
// Cache Tests
// =============================================================================

func TestCache_GetSet(t *testing.T) {
	c := New[string, int](4)
	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should miss")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit 1 miss", stats)
	}
	if stats.HitRate() != 0.5 {
		t.Errorf("HitRate() = %v, want 0.5", stats.HitRate())
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int, int](3)
	var evicted []int
	c.OnEvict(func(k, _ int) { evicted = append(evicted, k) })

	c.Set(1, 1)
	c.Set(2, 2)
	c.Set(3, 3)
	c.Get(1) // 2 is now the oldest
	c.Set(4, 4)

	if len(evicted) != 1 || evicted[0] != 2 {
		t.Fatalf("evicted = %v, want [2]", evicted)
	}
	if _, ok := c.Peek(2); ok {
		t.Error("2 should be gone")
	}
	for _, k := range []int{1, 3, 4} {
		if _, ok := c.Peek(k); !ok {
			t.Errorf("%d should be present", k)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestCache_ZeroCapacity(t *testing.T) {
	c := New[string, int](0)
	released := 0
	c.OnEvict(func(string, int) { released++ })

	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Error("zero-capacity cache must not store")
	}
	if released != 1 {
		t.Errorf("released = %d, want 1", released)
	}

	calls := 0
	for i := 0; i < 3; i++ {
		v := c.GetOrCreate("x", func() int { calls++; return 7 })
		if v != 7 {
			t.Errorf("GetOrCreate = %d, want 7", v)
		}
	}
	if calls != 3 {
		t.Errorf("create calls = %d, want 3", calls)
	}
}

func TestCache_GetOrCreate(t *testing.T) {
	c := New[string, int](2)
	calls := 0
	create := func() int { calls++; return 42 }

	c.GetOrCreate("k", create)
	c.GetOrCreate("k", create)
	if calls != 1 {
		t.Errorf("create calls = %d, want 1", calls)
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New[string, int](8)
	released := map[string]bool{}
	c.OnEvict(func(k string, _ int) { released[k] = true })

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if !c.Delete("a") || c.Delete("a") {
		t.Error("Delete should succeed once")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
	for _, k := range []string{"a", "b", "c"} {
		if !released[k] {
			t.Errorf("%s was not released", k)
		}
	}
}

func TestCache_Each(t *testing.T) {
	c := New[int, int](4)
	c.Set(1, 10)
	c.Set(2, 20)
	c.Get(1)

	var order []int
	c.Each(func(k, _ int) { order = append(order, k) })
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("Each order = %v, want [1 2]", order)
	}
}
