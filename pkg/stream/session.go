package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/stydxm/gopsched/pkg/annexb"
	"github.com/stydxm/gopsched/pkg/bitstream"
	"github.com/stydxm/gopsched/pkg/dpb"
	"github.com/stydxm/gopsched/pkg/gop"
	"github.com/stydxm/gopsched/pkg/h264"
)

// ErrSessionBroken 会话此前已失败，frame_num/POC状态不再可信
var ErrSessionBroken = errors.New("编码会话已失效")

// EncodedPicture 一帧的编码结果
type EncodedPicture struct {
	Picture  gop.Picture
	Header   h264.SliceHeader
	Data     []byte // Annex B访问单元，RepeatHeaders时IDR前带SPS/PPS
	PoolSize int
}

// Observer 接收每帧编码结果，用于指标和状态发布
type Observer interface {
	ObservePicture(sessionID string, ep *EncodedPicture)
}

// Session 串联GOP调度、参考帧池、片头推导和硬件提交，调用方必须串行调用
type Session struct {
	id        string
	config    EncoderConfig
	seq       *gop.Sequencer
	pool      *dpb.Pool
	params    *h264.ParameterSets
	submitter Submitter
	observers []Observer
	err       error
}

// SessionFactory 校验配置并创建编码会话
func SessionFactory(config EncoderConfig, submitter Submitter, observers ...Observer) (*Session, error) {
	if submitter == nil {
		return nil, fmt.Errorf("缺少硬件提交层")
	}
	seq, err := gop.NewSequencer(config.GOP)
	if err != nil {
		return nil, err
	}
	params, err := h264.DeriveParameterSets(config.GOP, config.StreamInfo())
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:        xid.New().String(),
		config:    config,
		seq:       seq,
		pool:      dpb.NewPool(config.GOP.NumRefFrames),
		params:    params,
		submitter: submitter,
		observers: observers,
	}
	logrus.Infof("编码会话 %s 已创建: %dx%d %s, idr_period=%d, intra_period=%d, 参考帧池容量=%d",
		s.id, config.Width, config.Height, config.Profile, config.GOP.IDRPeriod, config.GOP.IntraPeriod, s.pool.Capacity())
	return s, nil
}

// ID 会话标识
func (s *Session) ID() string {
	return s.id
}

// ParameterSets 会话的SPS/PPS
func (s *Session) ParameterSets() *h264.ParameterSets {
	return s.params
}

// PoolEntries 当前参考帧池内容
func (s *Session) PoolEntries() []dpb.Entry {
	return s.pool.Entries()
}

// ForceIDR 请求下一帧编码为IDR
func (s *Session) ForceIDR() {
	s.seq.ForceIDR()
}

// Encode 编码一帧
func (s *Session) Encode(ctx context.Context, sample Sample) (*EncodedPicture, error) {
	if s.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionBroken, s.err)
	}
	ep, err := s.encode(ctx, sample)
	if err != nil {
		s.err = err
		logrus.Errorf("会话 %s 编码失败，放弃该会话: %v", s.id, err)
		return nil, err
	}
	for _, o := range s.observers {
		o.ObservePicture(s.id, ep)
	}
	return ep, nil
}

func (s *Session) encode(ctx context.Context, sample Sample) (*EncodedPicture, error) {
	pic := s.seq.Next()
	settings := s.seq.Settings()

	var list0 []dpb.RefPic
	if pic.Type == gop.FrameP {
		var err error
		list0, err = dpb.BuildList0(s.pool, pic.FrameNum, settings.MaxFrameNum())
		if err != nil {
			return nil, err
		}
	}

	header := h264.DeriveSliceHeader(pic, list0, s.params.PPS)
	bw := bitstream.NewWriter(len(sample.Data) + 64)
	header.WriteTo(bw, s.params.SPS, s.params.PPS)

	// IDR不参考任何帧，先清空池，提交成功后再把IDR本身加入
	if pic.Type == gop.FrameIDR {
		s.release(s.pool.Clear())
	}

	surface, err := s.submitter.Submit(ctx, SliceJob{
		Picture: pic,
		Header:  header,
		Sample:  sample,
		Writer:  bw,
	})
	if err != nil {
		return nil, fmt.Errorf("提交第%d帧(%s)失败: %w", pic.DisplayOrder, pic.Type, err)
	}
	bw.TrailingBits()

	if pic.IsReference {
		if err := s.pool.Add(pic, surface); err != nil {
			return nil, err
		}
		s.release(s.pool.EvictIfOverCapacity())
	}

	nal := annexb.Packetize(header.NalType, header.NalRefIdc, bw.Bytes())
	data := nal
	if s.config.RepeatHeaders && pic.Type == gop.FrameIDR {
		headers := s.params.Headers()
		data = make([]byte, 0, len(headers)+len(nal))
		data = append(data, headers...)
		data = append(data, nal...)
	}

	logrus.Debugf("帧 %d 编码完成: %s frame_num=%d poc_lsb=%d refs=%d, %d 字节",
		pic.DisplayOrder, pic.Type, pic.FrameNum, pic.PocLsb, len(list0), len(data))

	return &EncodedPicture{
		Picture:  pic,
		Header:   header,
		Data:     data,
		PoolSize: s.pool.Len(),
	}, nil
}

func (s *Session) release(entries []dpb.Entry) {
	r, ok := s.submitter.(SurfaceReleaser)
	if !ok {
		return
	}
	for _, e := range entries {
		r.Release(e.Surface)
	}
}

// EncodeFrame 实现Encoder接口，返回Annex B字节流
func (s *Session) EncodeFrame(ctx context.Context, sample Sample) ([]byte, error) {
	ep, err := s.Encode(ctx, sample)
	if err != nil {
		return nil, err
	}
	return ep.Data, nil
}

// Flush 不使用B帧，没有缓存的帧
func (s *Session) Flush() ([]byte, error) {
	return nil, nil
}

// Close 释放池中所有表面
func (s *Session) Close() error {
	s.release(s.pool.Clear())
	logrus.Debugf("编码会话 %s 已关闭，共编码 %d 帧", s.id, s.seq.CodedCount())
	return nil
}

// GetHeaders 获取SPS/PPS头信息
func (s *Session) GetHeaders() ([]byte, error) {
	return s.params.Headers(), nil
}
