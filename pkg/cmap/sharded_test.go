package cmap

import (
	"fmt"
	"sync"
	"testing"
)

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input int
		want  int
	}{
		{0, DefaultShardCount},
		{-1, DefaultShardCount},
		{3, DefaultShardCount},
		{1, 1},
		{8, 8},
		{32, 32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[int](tt.input)
			if len(m.shards) != tt.want {
				t.Errorf("shard count = %d, want %d", len(m.shards), tt.want)
			}
		})
	}
}

func TestMap_Basic(t *testing.T) {
	m := New[int]()

	m.Set("a", 1)
	m.Set("b", 2)
	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = (%d, %v), want (1, true)", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) found a value")
	}
	if m.SetIfAbsent("a", 10) {
		t.Error("SetIfAbsent(a) replaced an existing key")
	}
	if !m.SetIfAbsent("c", 3) {
		t.Error("SetIfAbsent(c) did not store")
	}
	if m.Count() != 3 {
		t.Errorf("Count() = %d, want 3", m.Count())
	}

	if v, ok := m.Pop("b"); !ok || v != 2 {
		t.Errorf("Pop(b) = (%d, %v), want (2, true)", v, ok)
	}
	if _, ok := m.Pop("b"); ok {
		t.Error("second Pop(b) found a value")
	}
	m.Delete("c")
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}

	m.Clear()
	if m.Count() != 0 {
		t.Errorf("Count() after Clear = %d", m.Count())
	}
}

func TestMap_Update(t *testing.T) {
	m := New[int]()

	v, ok := m.Update("n", func(v int, exists bool) (int, bool) {
		if exists {
			t.Error("exists for new key")
		}
		return v + 1, true
	})
	if !ok || v != 1 {
		t.Errorf("Update() = (%d, %v), want (1, true)", v, ok)
	}

	_, ok = m.Update("n", func(v int, exists bool) (int, bool) {
		return v, false
	})
	if ok || m.Count() != 0 {
		t.Errorf("Update() with keep=false left the key, count = %d", m.Count())
	}
}

func TestMap_Range(t *testing.T) {
	m := NewWithShards[int](4)
	for i := 0; i < 20; i++ {
		m.Set(fmt.Sprint(i), i)
	}

	sum := 0
	m.Range(func(_ string, v int) bool {
		sum += v
		return true
	})
	if sum != 190 {
		t.Errorf("sum = %d, want 190", sum)
	}

	visited := 0
	m.Range(func(string, int) bool {
		visited++
		return visited < 5
	})
	if visited != 5 {
		t.Errorf("visited = %d, want 5", visited)
	}
}

func TestMap_ConcurrentUpdate(t *testing.T) {
	m := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Update(fmt.Sprint(j%10), func(v int, _ bool) (int, bool) {
					return v + 1, true
				})
			}
		}()
	}
	wg.Wait()

	total := 0
	m.Range(func(_ string, v int) bool {
		total += v
		return true
	})
	if total != 5000 {
		t.Errorf("total = %d, want 5000", total)
	}
}
