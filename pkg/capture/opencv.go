package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/stydxm/gopsched/pkg/stream"
)

type OpenCVCaptureParams struct {
	frameWidth  int
	frameHeight int
	fps         float64
}

func GetOpenCVCaptureParam(capture *gocv.VideoCapture) OpenCVCaptureParams {
	return OpenCVCaptureParams{
		frameWidth:  int(capture.Get(gocv.VideoCaptureFrameWidth)),
		frameHeight: int(capture.Get(gocv.VideoCaptureFrameHeight)),
		fps:         capture.Get(gocv.VideoCaptureFPS),
	}
}

func GetOpencvVideoStream[T interface{ int | string }](source T) (*gocv.VideoCapture, error) {
	vc, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, fmt.Errorf("无法打开视频流: %w", err)
	}
	return vc, nil
}

// ToSample 把BGR帧缩放到会话尺寸并转换为I420
func ToSample(frame gocv.Mat, width, height int, pts int64) stream.Sample {
	if frame.Cols() != width || frame.Rows() != height {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(frame, &resized, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationLinear)
		frame = resized
	}

	yuv := gocv.NewMat()
	defer yuv.Close()
	gocv.CvtColor(frame, &yuv, gocv.ColorBGRToYUVI420)

	return stream.Sample{
		Width:  width,
		Height: height,
		Data:   yuv.ToBytes(),
		PTS:    pts,
	}
}
