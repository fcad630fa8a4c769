package gop

import (
	"errors"
	"fmt"
)

// ErrInternalConsistency 调度器与参考帧池状态不一致，会话必须放弃
var ErrInternalConsistency = errors.New("内部状态不一致")

// ConfigError GOP配置非法，构造时返回
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("GOP配置错误: %s=%v: %s", e.Field, e.Value, e.Reason)
}
