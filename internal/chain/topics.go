package chain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EventTopics 把事件签名列表 (例如 "Transfer(address,address,uint256)")
// 哈希成 topic0 过滤集合。只关心事件发生在哪个区块，不解码 payload。
func EventTopics(signatures []string) []common.Hash {
	topics := make([]common.Hash, 0, len(signatures))
	for _, sig := range signatures {
		topics = append(topics, crypto.Keccak256Hash([]byte(sig)))
	}
	return topics
}
