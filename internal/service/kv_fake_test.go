package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"sleepsense/internal/domain"
	"sleepsense/internal/store"
)

// fakeKVStore 仅用于单元测试（内存 KV）
type fakeKVStore struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{data: make(map[string]string)}
}

func (f *fakeKVStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (f *fakeKVStore) Set(_ context.Context, key string, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []store.SleepDataUpdated
	err    error
}

func (p *recordingPublisher) PublishSleepDataUpdated(_ context.Context, user string, data domain.SleepData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, store.SleepDataUpdated{User: user, Data: data})
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

var errPublish = errors.New("stream unavailable")
