package cron

import (
	"context"
	"sync"
)

type contextKey string

const sharedDataKey contextKey = "cron:shared_data"

// SharedData passes results between the tasks of one chain run
type SharedData struct {
	data sync.Map
}

// GetSharedData returns the SharedData of the running chain, or nil outside a chain
func GetSharedData(ctx context.Context) *SharedData {
	if val, ok := ctx.Value(sharedDataKey).(*SharedData); ok {
		return val
	}
	return nil
}

func (s *SharedData) Set(key string, value any) {
	s.data.Store(key, value)
}

func (s *SharedData) Get(key string) (any, bool) {
	return s.data.Load(key)
}

// Add increments the integer counter stored under key and returns the new value
func (s *SharedData) Add(key string, delta int) int {
	for {
		cur, loaded := s.data.LoadOrStore(key, delta)
		if !loaded {
			return delta
		}
		n, _ := cur.(int)
		if s.data.CompareAndSwap(key, cur, n+delta) {
			return n + delta
		}
	}
}

// Int returns the integer stored under key, or 0
func (s *SharedData) Int(key string) int {
	v, ok := s.data.Load(key)
	if !ok {
		return 0
	}
	n, _ := v.(int)
	return n
}

func (s *SharedData) Delete(key string) {
	s.data.Delete(key)
}

// Range iterates over all pairs until f returns false
func (s *SharedData) Range(f func(key string, value any) bool) {
	s.data.Range(func(k, v any) bool {
		return f(k.(string), v)
	})
}
