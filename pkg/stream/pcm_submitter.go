package stream

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/stydxm/gopsched/pkg/dpb"
	"github.com/stydxm/gopsched/pkg/h264"
)

const (
	mbTypeIPCMInISlice = 25
	mbTypeIPCMInPSlice = 5 + mbTypeIPCMInISlice
)

// PCMSubmitter 软件实现的片提交层，每个宏块写为I_PCM，输出无损可解码码流
type PCMSubmitter struct {
	width, height int
	mbWidth       int
	mbHeight      int
	nextSurface   dpb.SurfaceID
	live          map[dpb.SurfaceID]struct{}
}

// PCMSubmitterFactory 创建I_PCM提交层，只支持CAVLC（Baseline）
func PCMSubmitterFactory(config EncoderConfig) (*PCMSubmitter, error) {
	info := config.StreamInfo()
	if err := info.Validate(); err != nil {
		return nil, err
	}
	if info.CABAC() {
		return nil, fmt.Errorf("I_PCM提交层只支持baseline，当前为%s", info.Profile)
	}
	return &PCMSubmitter{
		width:    config.Width,
		height:   config.Height,
		mbWidth:  int(info.WidthInMbs()),
		mbHeight: int(info.HeightInMbs()),
		live:     make(map[dpb.SurfaceID]struct{}),
	}, nil
}

// Submit 在片头之后写出slice_data()
func (p *PCMSubmitter) Submit(ctx context.Context, job SliceJob) (dpb.SurfaceID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := job.Sample
	if s.Width != p.width || s.Height != p.height {
		return 0, fmt.Errorf("样本尺寸 %dx%d 与会话 %dx%d 不符", s.Width, s.Height, p.width, p.height)
	}
	if want := s.Width * s.Height * 3 / 2; len(s.Data) < want {
		return 0, fmt.Errorf("I420样本长度不足: %d < %d", len(s.Data), want)
	}

	pSlice := job.Header.SliceType == h264.SliceP
	bw := job.Writer
	ySize := s.Width * s.Height
	cw, ch := s.Width/2, s.Height/2
	yPlane := s.Data[:ySize]
	uPlane := s.Data[ySize : ySize+cw*ch]
	vPlane := s.Data[ySize+cw*ch : ySize+2*cw*ch]

	pcm := make([]byte, 0, 384)
	for my := 0; my < p.mbHeight; my++ {
		for mx := 0; mx < p.mbWidth; mx++ {
			if pSlice {
				bw.WriteUE(0) // mb_skip_run
				bw.WriteUE(mbTypeIPCMInPSlice)
			} else {
				bw.WriteUE(mbTypeIPCMInISlice)
			}

			pcm = pcm[:0]
			pcm = appendBlock(pcm, yPlane, s.Width, s.Height, mx*16, my*16, 16)
			pcm = appendBlock(pcm, uPlane, cw, ch, mx*8, my*8, 8)
			pcm = appendBlock(pcm, vPlane, cw, ch, mx*8, my*8, 8)
			// WriteBytes先写pcm_alignment_zero_bit
			bw.WriteBytes(pcm)
		}
	}

	surface := p.nextSurface
	p.nextSurface++
	p.live[surface] = struct{}{}
	logrus.Debugf("I_PCM片写入完成: frame_num=%d surface=%d", job.Picture.FrameNum, surface)
	return surface, nil
}

// Release 释放重建表面
func (p *PCMSubmitter) Release(surface dpb.SurfaceID) {
	delete(p.live, surface)
}

// LiveSurfaces 仍被参考帧池持有的表面数
func (p *PCMSubmitter) LiveSurfaces() int {
	return len(p.live)
}

// appendBlock 复制size*size的块，越界部分复制边缘像素
func appendBlock(dst, plane []byte, w, h, x0, y0, size int) []byte {
	for y := y0; y < y0+size; y++ {
		row := min(y, h-1) * w
		for x := x0; x < x0+size; x++ {
			dst = append(dst, plane[row+min(x, w-1)])
		}
	}
	return dst
}
