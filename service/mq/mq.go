package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/apache/rocketmq-client-go/v2"
	c "github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/apache/rocketmq-client-go/v2/rlog"
	"github.com/avast/retry-go/v4"
)

const (
	TopicKnowledge        = "topic_knowledge"
	TagAttachmentUploaded = "tag_attachment_uploaded"

	consumeGroupKnowledge = "cg_knowledge"

	sendMessageAttempts  = 3
	maxReconsumeTimes    = 5
	consumeGoroutineNums = 10
)

var (
	// 全局生产者
	producerInstance rocketmq.Producer

	// 知识库业务消费者
	consumerKnowledge rocketmq.PushConsumer

	// 消息处理器表
	handlers = make(map[string]MessageHandler)
)

type MessageHandler func(context.Context, *primitive.MessageExt) error

type Message struct {
	Topic   string
	Tag     string
	Payload any
}

// AttachmentUploadedEvent 附件上传完成事件，触发自动索引
type AttachmentUploadedEvent struct {
	AttachmentID uint `json:"attachment_id"`
}

// AttachmentIndexer 上传事件的消费侧入口
type AttachmentIndexer interface {
	IndexAttachment(ctx context.Context, attachmentID uint) error
}

// Init 创建生产者和消费者，MQ未启用时不调用
func Init(nameServers []string) error {
	// 设置RocketMQ客户端（使用rlog）的日志级别
	rlog.SetLogLevel("warn")

	var err error
	consumerKnowledge, err = rocketmq.NewPushConsumer(
		c.WithNameServer(nameServers),
		c.WithGroupName(consumeGroupKnowledge),
		c.WithConsumerModel(c.Clustering),
		c.WithConsumeFromWhere(c.ConsumeFromLastOffset),
		c.WithMaxReconsumeTimes(maxReconsumeTimes),
		c.WithConsumeGoroutineNums(consumeGoroutineNums),
	)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %v", err)
	}

	producerInstance, err = rocketmq.NewProducer(
		producer.WithNameServer(nameServers),
	)
	if err != nil {
		return fmt.Errorf("failed to create producer: %v", err)
	}
	return nil
}

// Run 注册消息处理器并启动收发
func Run(indexer AttachmentIndexer) error {
	handler := func(ctx context.Context, msg *primitive.MessageExt) error {
		var event AttachmentUploadedEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return fmt.Errorf("failed to unmarshal message body: %v", err)
		}
		return indexer.IndexAttachment(ctx, event.AttachmentID)
	}
	if err := registerHandler(consumerKnowledge, TopicKnowledge, TagAttachmentUploaded, handler); err != nil {
		return fmt.Errorf("failed to register handler, topic: %s, tag: %s, err: %v",
			TopicKnowledge, TagAttachmentUploaded, err)
	}

	if err := producerInstance.Start(); err != nil {
		return fmt.Errorf("failed to start producer: %v", err)
	}

	if err := consumerKnowledge.Start(); err != nil {
		return fmt.Errorf("failed to start consumer: %v", err)
	}
	return nil
}

// registerHandler 注册消息处理器
func registerHandler(consumer rocketmq.PushConsumer, topic string, tag string, handler MessageHandler) error {
	handlers[topic] = handler

	selector := c.MessageSelector{}
	if tag != "" {
		selector = c.MessageSelector{
			Type:       c.TAG,
			Expression: tag,
		}
	}

	err := consumer.Subscribe(topic, selector, func(ctx context.Context, messages ...*primitive.MessageExt) (c.ConsumeResult, error) {
		for _, msg := range messages {
			h := handlers[msg.Topic]
			if h == nil {
				slog.Warn("No message handler found for topic", "topic", msg.Topic)
				continue
			}

			if err := h(ctx, msg); err != nil {
				slog.Error("Failed to process message",
					"topic", msg.Topic,
					"msg_id", msg.MsgId,
					"error", err)
				return c.ConsumeRetryLater, err
			}
		}
		return c.ConsumeSuccess, nil
	})

	if err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %v", topic, err)
	}

	return nil
}

// PublishAttachmentUploaded 发布附件上传事件
func PublishAttachmentUploaded(ctx context.Context, attachmentID uint) error {
	return SendMessage(ctx, &Message{
		Topic:   TopicKnowledge,
		Tag:     TagAttachmentUploaded,
		Payload: AttachmentUploadedEvent{AttachmentID: attachmentID},
	})
}

// SendMessage 向MQ发送消息
func SendMessage(ctx context.Context, message *Message) error {
	payloadJSON, err := json.Marshal(message.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %v", err)
	}

	msg := primitive.NewMessage(message.Topic, payloadJSON)
	if message.Tag != "" {
		msg = msg.WithTag(message.Tag)
	}

	err = retry.Do(
		func() error {
			_, err := producerInstance.SendSync(ctx, msg)
			return err
		},
		retry.Attempts(sendMessageAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying to send message",
				"attempt", n+1,
				"topic", msg.Topic,
				"err", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s after retries: %v", msg.Topic, err)
	}

	return nil
}

// Shutdown 关闭MQ服务
func Shutdown() {
	if producerInstance != nil {
		producerInstance.Shutdown()
	}
	if consumerKnowledge != nil {
		consumerKnowledge.Shutdown()
	}
}
