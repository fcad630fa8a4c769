package capture

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/stydxm/gopsched/pkg/stream"
)

// StartEncodedStream 采集视频并用软件调度的H.264会话编码后通过UDP发送
func StartEncodedStream[T interface{ int | string }](ctx context.Context, source T, encoder stream.Encoder, width, height int, conn io.Writer, wg *sync.WaitGroup) {
	defer wg.Done()

	capture, err := GetOpencvVideoStream(source)
	if err != nil {
		logrus.Errorf("%v", err)
		return
	}
	defer capture.Close()
	param := GetOpenCVCaptureParam(capture)
	logrus.Debugf("视频分辨率: %dx%d, FPS: %.2f，编码为 %dx%d",
		param.frameWidth, param.frameHeight, param.fps, width, height)

	defer func() {
		if err := encoder.Close(); err != nil {
			logrus.Warnf("关闭编码器失败: %v", err)
		}
	}()

	// 获取并发送SPS/PPS头
	headers, err := encoder.GetHeaders()
	if err != nil {
		logrus.Warnf("无法获取编码器头: %v", err)
	} else if len(headers) > 0 {
		logrus.Debugf("发送编码器头 (%d 字节)", len(headers))
		stream.SendPacket(conn, headers, 0)
	}

	frame := gocv.NewMat()
	defer frame.Close()

	frameID := uint16(1)
	pts := int64(0)
	for ctx.Err() == nil {
		if ok := capture.Read(&frame); !ok {
			logrus.Info("视频流结束")
			break
		}
		if frame.Empty() {
			logrus.Warn("空帧")
			continue
		}

		sample := ToSample(frame, width, height, pts)
		pts++

		encodedData, err := encoder.EncodeFrame(ctx, sample)
		if err != nil {
			// 会话状态已不可信，不能继续编码
			logrus.Errorf("编码失败: %v", err)
			return
		}

		logrus.Debugf("帧 %d 编码完成，大小: %d 字节（原始: %d 字节）",
			frameID, len(encodedData), len(sample.Data))

		stream.SendPacket(conn, encodedData, frameID)
		frameID = (frameID + 1) % 65535
	}

	flushedData, _ := encoder.Flush()
	if len(flushedData) > 0 {
		stream.SendPacket(conn, flushedData, frameID)
	}
	logrus.Debug("编码流传输完成")
}
