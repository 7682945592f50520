package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqttcommon "sleepsense/common/mqtt"
	"sleepsense/internal/service"
	"sleepsense/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSubscriber struct {
	mu           sync.Mutex
	topic        string
	handler      mqttcommon.MessageHandler
	unsubscribed []string
	subErr       error
}

func (f *fakeSubscriber) Subscribe(topic string, _ byte, handler mqttcommon.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return f.subErr
	}
	f.topic = topic
	f.handler = handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topics ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, topics...)
	return nil
}

func (f *fakeSubscriber) subscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

func newTestBroker(t *testing.T) (*ImportBroker, service.SleepDataService, *fakeSubscriber) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	now := func() time.Time { return time.Date(2024, 1, 16, 7, 0, 0, 0, time.UTC) }
	data := service.NewSleepDataService(
		store.NewSleepDataStore(store.NewRedisKV(rc), "sleepData_", "currentSleepData"),
		nil,
		service.SleepDataOptions{Now: now},
		zap.NewNop(),
	)
	sub := &fakeSubscriber{}
	return NewImportBroker(data, sub, "sleepsense/import", 1, zap.NewNop()), data, sub
}

func TestImportBroker_StartSubscribesAndStops(t *testing.T) {
	b, _, sub := newTestBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	require.Eventually(t, sub.subscribed, time.Second, 10*time.Millisecond)
	assert.Equal(t, "sleepsense/import", sub.topic)

	cancel()
	require.NoError(t, <-done)

	b.Stop()
	assert.Equal(t, []string{"sleepsense/import"}, sub.unsubscribed)
}

func TestImportBroker_StartErrors(t *testing.T) {
	b, _, sub := newTestBroker(t)
	sub.subErr = errors.New("not connected")
	assert.Error(t, b.Start(context.Background()))

	b.topic = ""
	assert.Error(t, b.Start(context.Background()))
}

func TestImportBroker_HandleJSONObjectAndArray(t *testing.T) {
	b, data, _ := newTestBroker(t)
	ctx := context.Background()

	err := b.HandleMessage("sleepsense/import", []byte(`{"user":"ana@example.com","format":"json","data":{"date":"2024-01-15","quality":88}}`))
	require.NoError(t, err)

	err = b.HandleMessage("sleepsense/import", []byte(`{"user":"ana@example.com","data":[{"date":"2024-01-14","quality":70},{"date":"2024-01-13","quality":71}]}`))
	require.NoError(t, err)

	snap, err := data.GetData(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Len(t, snap.DailyData, 3)
	assert.Equal(t, "2024-01-13", snap.DailyData[0].Date)
}

func TestImportBroker_HandleCSVString(t *testing.T) {
	b, data, _ := newTestBroker(t)

	err := b.HandleMessage("sleepsense/import", []byte(`{"user":"bo@example.com","format":"csv","data":"date,quality\n2024-01-15,64\n"}`))
	require.NoError(t, err)

	cur, err := data.GetCurrent(context.Background(), "bo@example.com")
	require.NoError(t, err)
	assert.Equal(t, 64, cur.Quality)
}

func TestImportBroker_BadMessages(t *testing.T) {
	b, data, _ := newTestBroker(t)

	assert.Error(t, b.HandleMessage("t", []byte(`not json`)))
	assert.ErrorIs(t, b.HandleMessage("t", []byte(`{"data":{"quality":1}}`)), errMissingUser)

	// 导入被拒绝不返回错误，数据保持不变
	require.NoError(t, b.HandleMessage("t", []byte(`{"user":"ana@example.com","format":"pdf","data":"x"}`)))
	snap, err := data.GetData(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Empty(t, snap.DailyData)
}
