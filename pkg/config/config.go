package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/stydxm/gopsched/pkg/gop"
	"github.com/stydxm/gopsched/pkg/h264"
	"github.com/stydxm/gopsched/pkg/stream"
)

// Config 程序配置
type Config struct {
	Mode    string        `yaml:"mode"`   // dev时输出调试日志
	Source  string        `yaml:"source"` // 摄像头编号或视频文件路径
	Encoder EncoderConfig `yaml:"encoder"`
	GOP     gop.Settings  `yaml:"gop"`
	UDP     UDPConfig     `yaml:"udp"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type EncoderConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	FPS           float64 `yaml:"fps"`
	Profile       string  `yaml:"profile"`
	Level         uint8   `yaml:"level"`
	QP            int32   `yaml:"qp"`
	RepeatHeaders bool    `yaml:"repeat_headers"`
}

type UDPConfig struct {
	Address string `yaml:"address"`
}

type MQTTConfig struct {
	Address string `yaml:"address"`
}

type MetricsConfig struct {
	Address string `yaml:"address"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Mode:   "prod",
		Source: "0",
		Encoder: EncoderConfig{
			Width:         1280,
			Height:        720,
			FPS:           30,
			Profile:       "baseline",
			Level:         41,
			QP:            26,
			RepeatHeaders: true,
		},
		GOP:     gop.DefaultSettings(),
		UDP:     UDPConfig{Address: "0.0.0.0:3334"},
		MQTT:    MQTTConfig{Address: ":3333"},
		Metrics: MetricsConfig{Address: ":9100"},
	}
}

// Load 依次应用默认值、YAML文件和环境变量，path为空或不存在时跳过文件
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
			}
			logrus.Infof("已加载配置文件: %s", path)
		case os.IsNotExist(err):
			logrus.Warnf("配置文件 %s 不存在，使用默认配置", path)
		default:
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("mode"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("GOPSCHED_SOURCE"); v != "" {
		cfg.Source = v
	}
	if v := os.Getenv("GOPSCHED_UDP_ADDR"); v != "" {
		cfg.UDP.Address = v
	}
	if v := os.Getenv("GOPSCHED_MQTT_ADDR"); v != "" {
		cfg.MQTT.Address = v
	}
	if v := os.Getenv("GOPSCHED_METRICS_ADDR"); v != "" {
		cfg.Metrics.Address = v
	}
}

// Validate 校验GOP设置和码流参数
func (c *Config) Validate() error {
	if err := c.GOP.Validate(); err != nil {
		return err
	}
	enc, err := c.StreamConfig()
	if err != nil {
		return err
	}
	if err := enc.StreamInfo().Validate(); err != nil {
		return fmt.Errorf("编码参数错误: %w", err)
	}
	return nil
}

// StreamConfig 转换为编码会话配置
func (c *Config) StreamConfig() (stream.EncoderConfig, error) {
	profile, err := h264.ParseProfile(c.Encoder.Profile)
	if err != nil {
		return stream.EncoderConfig{}, err
	}
	return stream.EncoderConfig{
		Width:         c.Encoder.Width,
		Height:        c.Encoder.Height,
		FPS:           c.Encoder.FPS,
		Profile:       profile,
		Level:         c.Encoder.Level,
		QP:            c.Encoder.QP,
		RepeatHeaders: c.Encoder.RepeatHeaders,
		GOP:           c.GOP,
	}, nil
}

// CameraIndex 数字source表示摄像头编号
func (c *Config) CameraIndex() (int, bool) {
	idx, err := strconv.Atoi(c.Source)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// Dev 是否输出调试日志
func (c *Config) Dev() bool {
	return c.Mode == "dev"
}
