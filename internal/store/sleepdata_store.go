package store

import (
	"context"
	"encoding/json"
	"fmt"

	"sleepsense/internal/domain"
)

// SleepDataStore 按用户存取完整数据块
// 每次保存同时写入镜像键，镜像键保存最后一次写入的数据块
type SleepDataStore struct {
	kv        KV
	prefix    string
	mirrorKey string
}

func NewSleepDataStore(kv KV, prefix, mirrorKey string) *SleepDataStore {
	return &SleepDataStore{kv: kv, prefix: prefix, mirrorKey: mirrorKey}
}

// Key 用户数据块的键，如 sleepData_ana@example.com
func (s *SleepDataStore) Key(user string) string {
	return s.prefix + user
}

// Load 读取用户数据块；不存在时返回 ErrMiss
func (s *SleepDataStore) Load(ctx context.Context, user string) (domain.SleepData, error) {
	return s.read(ctx, s.Key(user))
}

// LoadCurrent 读取镜像键
func (s *SleepDataStore) LoadCurrent(ctx context.Context) (domain.SleepData, error) {
	return s.read(ctx, s.mirrorKey)
}

// Save 写入用户数据块与镜像键（不过期）
func (s *SleepDataStore) Save(ctx context.Context, user string, data domain.SleepData) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal sleep data: %w", err)
	}
	if err := s.kv.Set(ctx, s.Key(user), string(b), 0); err != nil {
		return fmt.Errorf("save sleep data for %s: %w", user, err)
	}
	if s.mirrorKey != "" {
		if err := s.kv.Set(ctx, s.mirrorKey, string(b), 0); err != nil {
			return fmt.Errorf("save current sleep data: %w", err)
		}
	}
	return nil
}

func (s *SleepDataStore) read(ctx context.Context, key string) (domain.SleepData, error) {
	var data domain.SleepData
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return data, err
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return data, fmt.Errorf("decode %s: %w", key, err)
	}
	return data, nil
}
