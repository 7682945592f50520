package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqttcommon "sleepsense/common/mqtt"
	"sleepsense/internal/service"

	"go.uber.org/zap"
)

// ImportMessage MQTT 导入消息
// data 可以是对象、数组，或 JSON / CSV 文本字符串
type ImportMessage struct {
	User   string          `json:"user"`
	Format string          `json:"format"`
	Data   json.RawMessage `json:"data"`
}

// Subscriber 由 common/mqtt.Client 实现
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

var errMissingUser = errors.New("import message missing user")

// ImportBroker 订阅导入主题，把消息交给 SleepDataService.Import
type ImportBroker struct {
	data    service.SleepDataService
	sub     Subscriber
	topic   string
	qos     byte
	timeout time.Duration
	logger  *zap.Logger
}

func NewImportBroker(data service.SleepDataService, sub Subscriber, topic string, qos byte, logger *zap.Logger) *ImportBroker {
	return &ImportBroker{
		data:    data,
		sub:     sub,
		topic:   topic,
		qos:     qos,
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

// Start 订阅主题并阻塞到 ctx 结束
func (b *ImportBroker) Start(ctx context.Context) error {
	if b.topic == "" {
		return fmt.Errorf("mqtt import topic not configured")
	}
	if err := b.sub.Subscribe(b.topic, b.qos, b.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to import topic: %w", err)
	}
	b.logger.Info("MQTT import broker started", zap.String("topic", b.topic))

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (b *ImportBroker) Stop() {
	if err := b.sub.Unsubscribe(b.topic); err != nil {
		b.logger.Error("Failed to unsubscribe", zap.String("topic", b.topic), zap.Error(err))
	}
	b.logger.Info("MQTT import broker stopped")
}

// HandleMessage 处理一条导入消息
// 导入被拒绝只记录日志；消息格式错误和存储故障返回 error（由 MQTT 客户端记录）
func (b *ImportBroker) HandleMessage(topic string, payload []byte) error {
	var msg ImportMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal import message: %w", err)
	}
	msg.User = strings.TrimSpace(msg.User)
	if msg.User == "" {
		return errMissingUser
	}
	format := msg.Format
	if format == "" {
		format = "json"
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	res, err := b.data.Import(ctx, msg.User, rawData(msg.Data), format)
	if err != nil {
		return fmt.Errorf("import for %s: %w", msg.User, err)
	}
	if !res.Success {
		b.logger.Warn("MQTT import rejected",
			zap.String("topic", topic),
			zap.String("user", msg.User),
			zap.String("error", res.Message),
		)
		return nil
	}

	b.logger.Info("MQTT import applied",
		zap.String("topic", topic),
		zap.String("user", msg.User),
		zap.Int("records", res.Records),
	)
	return nil
}

// rawData 字符串形式的 data 解开后按原文导入，其余保持 JSON 原文
func rawData(data json.RawMessage) interface{} {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return data
}
