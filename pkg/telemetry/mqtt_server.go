package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	sloglogrus "github.com/samber/slog-logrus/v2"
	"github.com/sirupsen/logrus"
)

// NewMqttServer 创建内嵌MQTT服务器，address为空时只使用内联客户端
func NewMqttServer(address string) (*mqtt.Server, error) {
	slogLogger := slog.New(sloglogrus.Option{Logger: logrus.StandardLogger()}.NewLogrusHandler())
	server := mqtt.New(&mqtt.Options{Logger: slogLogger, InlineClient: true})
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("无法添加MQTT认证钩子: %w", err)
	}

	if address != "" {
		tcp := listeners.NewTCP(listeners.Config{ID: "t1", Address: address})
		if err := server.AddListener(tcp); err != nil {
			return nil, fmt.Errorf("无法监听MQTT地址 %s: %w", address, err)
		}
	}
	return server, nil
}

// StartMqttServer 启动服务器，ctx结束后关闭
func StartMqttServer(ctx context.Context, server *mqtt.Server, wg *sync.WaitGroup) {
	defer wg.Done()

	go func() {
		if err := server.Serve(); err != nil {
			logrus.Fatalf("MQTT服务器启动失败: %v", err)
		}
	}()

	<-ctx.Done()
	if err := server.Close(); err != nil {
		logrus.Warnf("关闭MQTT服务器失败: %v", err)
	}
}
