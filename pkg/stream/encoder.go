package stream

import (
	"context"

	"github.com/stydxm/gopsched/pkg/bitstream"
	"github.com/stydxm/gopsched/pkg/dpb"
	"github.com/stydxm/gopsched/pkg/gop"
	"github.com/stydxm/gopsched/pkg/h264"
)

// EncoderConfig 编码会话配置
type EncoderConfig struct {
	Width         int
	Height        int
	FPS           float64
	Profile       h264.ProfileIdc
	Level         uint8
	QP            int32
	RepeatHeaders bool // 是否在每个IDR前重复发送SPS/PPS头
	GOP           gop.Settings
}

// StreamInfo 转换为参数集推导所需的码流参数
func (c EncoderConfig) StreamInfo() h264.StreamInfo {
	info := h264.StreamInfo{
		Width:   uint32(c.Width),
		Height:  uint32(c.Height),
		Profile: c.Profile,
		Level:   c.Level,
		QP:      c.QP,
	}
	if c.FPS > 0 {
		// 帧率按1/1000精度表示，如29.97 -> 29970/1000
		info.FrameRateNum = uint32(c.FPS*1000 + 0.5)
		info.FrameRateDen = 1000
	}
	return info
}

type Encoder interface {
	EncodeFrame(ctx context.Context, sample Sample) ([]byte, error)
	Flush() ([]byte, error)
	Close() error
	GetHeaders() ([]byte, error)
}

// Sample I420平面格式的原始图像
type Sample struct {
	Width  int
	Height int
	Data   []byte // Y平面后紧跟U、V平面
	PTS    int64
}

// SliceJob 交给硬件提交层的一帧
type SliceJob struct {
	Picture gop.Picture
	Header  h264.SliceHeader
	Sample  Sample
	// Writer 已写入片头，提交层在其后追加slice_data()，不写trailing bits
	Writer *bitstream.Writer
}

// Submitter 外部硬件提交层，成功时返回重建表面的句柄
type Submitter interface {
	Submit(ctx context.Context, job SliceJob) (dpb.SurfaceID, error)
}

// SurfaceReleaser 可选接口，参考帧被淘汰或IDR清空时释放表面
type SurfaceReleaser interface {
	Release(surface dpb.SurfaceID)
}
