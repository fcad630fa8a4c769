package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/stydxm/gopsched/pkg/capture"
	"github.com/stydxm/gopsched/pkg/config"
	"github.com/stydxm/gopsched/pkg/stream"
	"github.com/stydxm/gopsched/pkg/telemetry"
)

func main() {
	logrus.SetOutput(os.Stdout)
	cfg, err := config.Load(os.Getenv("config"))
	if err != nil {
		logrus.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Dev() {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	var wg sync.WaitGroup

	mqttServer, err := telemetry.NewMqttServer(cfg.MQTT.Address)
	if err != nil {
		logrus.Fatalf("无法创建MQTT服务器: %v", err)
	}
	wg.Add(1)
	go telemetry.StartMqttServer(ctx, mqttServer, &wg)

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)
	metricsServer := telemetry.NewMetricsServer(cfg.Metrics.Address, registry)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("指标服务器退出: %v", err)
		}
	}()
	defer metricsServer.Close()

	encoderConfig, err := cfg.StreamConfig()
	if err != nil {
		logrus.Fatalf("编码配置错误: %v", err)
	}
	submitter, err := stream.PCMSubmitterFactory(encoderConfig)
	if err != nil {
		logrus.Fatalf("无法创建提交层: %v", err)
	}
	publisher := telemetry.NewPublisher(mqttServer)
	session, err := stream.SessionFactory(encoderConfig, submitter, metrics, publisher)
	if err != nil {
		logrus.Fatalf("无法创建编码会话: %v", err)
	}
	if err := publisher.PublishHeaders(session.ID(), session.ParameterSets().Headers()); err != nil {
		logrus.Warnf("发布SPS/PPS失败: %v", err)
	}

	conn := stream.GetUDPConn(cfg.UDP.Address)
	defer conn.Close()
	logrus.Info("成功连接到UDP服务器")

	// 视频文件读完后结束整个程序
	var captureWG sync.WaitGroup
	captureWG.Add(1)
	if idx, ok := cfg.CameraIndex(); ok {
		go capture.StartEncodedStream(ctx, idx, session, encoderConfig.Width, encoderConfig.Height, conn, &captureWG)
	} else {
		go capture.StartEncodedStream(ctx, cfg.Source, session, encoderConfig.Width, encoderConfig.Height, conn, &captureWG)
	}
	captureWG.Wait()
	stop()

	wg.Wait()
	logrus.Infof("退出程序")
}
