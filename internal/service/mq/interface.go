package mq

import "context"

// Producer 生产者接口
type Producer interface {
	// Publish 发送消息
	// key: 分区键 (Partition Key), 例如合约地址, 保证同一合约的变化事件有序.
	// 传空字符串则随机分区.
	Publish(ctx context.Context, topic string, key string, payload []byte) error
}
