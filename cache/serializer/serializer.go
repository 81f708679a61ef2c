package serializer

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnsupportedSerializer 不支持的序列化器类型
var ErrUnsupportedSerializer = fmt.Errorf("unsupported serializer type")

// Serializer 定义序列化接口
type Serializer interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, dest any) error
}

// JSONSerializer JSON 序列化器
type JSONSerializer struct{}

func (j *JSONSerializer) Marshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (j *JSONSerializer) Unmarshal(data []byte, dest any) error {
	return json.Unmarshal(data, dest)
}

// MessagePackSerializer MessagePack 序列化器
// 相比 JSON 序列化更快、体积更小，但不可读
type MessagePackSerializer struct{}

func (m *MessagePackSerializer) Marshal(value any) ([]byte, error) {
	return msgpack.Marshal(value)
}

func (m *MessagePackSerializer) Unmarshal(data []byte, dest any) error {
	return msgpack.Unmarshal(data, dest)
}

// New 创建序列化器
//
// 支持的序列化器类型:
//   - "json": 标准库 JSON 序列化，兼容性最好（默认）
//   - "msgpack": MessagePack 二进制序列化，性能更优
func New(serializerType string) (Serializer, error) {
	switch serializerType {
	case "json", "":
		return &JSONSerializer{}, nil
	case "msgpack":
		return &MessagePackSerializer{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSerializer, serializerType)
	}
}
