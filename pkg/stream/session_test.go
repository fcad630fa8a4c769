package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stydxm/gopsched/pkg/annexb"
	"github.com/stydxm/gopsched/pkg/dpb"
	"github.com/stydxm/gopsched/pkg/gop"
	"github.com/stydxm/gopsched/pkg/h264"
)

type fakeSubmitter struct {
	jobs     []SliceJob
	next     dpb.SurfaceID
	released []dpb.SurfaceID
	failAt   int
}

func (f *fakeSubmitter) Submit(_ context.Context, job SliceJob) (dpb.SurfaceID, error) {
	if f.failAt > 0 && len(f.jobs)+1 == f.failAt {
		return 0, errors.New("硬件忙")
	}
	f.jobs = append(f.jobs, job)
	job.Writer.WriteUE(0) // 占位的slice_data
	s := f.next
	f.next++
	return s, nil
}

func (f *fakeSubmitter) Release(surface dpb.SurfaceID) {
	f.released = append(f.released, surface)
}

type recorder struct {
	ids      []string
	pictures []*EncodedPicture
}

func (r *recorder) ObservePicture(sessionID string, ep *EncodedPicture) {
	r.ids = append(r.ids, sessionID)
	r.pictures = append(r.pictures, ep)
}

func testConfig() EncoderConfig {
	return EncoderConfig{
		Width:   64,
		Height:  48,
		FPS:     25,
		Profile: h264.ProfileBaseline,
		Level:   30,
		QP:      26,
		GOP: gop.Settings{
			IDRPeriod:             6,
			IntraPeriod:           3,
			IPPeriod:              1,
			Log2MaxFrameNum:       4,
			Log2MaxPicOrderCntLsb: 4,
			NumRefFrames:          2,
		},
	}
}

func graySample(cfg EncoderConfig) Sample {
	data := make([]byte, cfg.Width*cfg.Height*3/2)
	for i := range data {
		data[i] = 0x80
	}
	return Sample{Width: cfg.Width, Height: cfg.Height, Data: data}
}

func TestSessionEncodeSequence(t *testing.T) {
	cfg := testConfig()
	sub := &fakeSubmitter{}
	rec := &recorder{}
	s, err := SessionFactory(cfg, sub, rec)
	require.NoError(t, err)

	var types []gop.FrameType
	for i := 0; i < 12; i++ {
		ep, err := s.Encode(context.Background(), graySample(cfg))
		require.NoError(t, err)
		types = append(types, ep.Picture.Type)

		switch ep.Picture.Type {
		case gop.FrameIDR:
			// IDR之后池里只有IDR本身
			assert.Equal(t, 1, ep.PoolSize)
			assert.Empty(t, ep.Header.RefPicList0)
			assert.Equal(t, annexb.NalIDR, annexb.Type(ep.Data[4:]))
		case gop.FrameP:
			require.NotEmpty(t, ep.Header.RefPicList0)
			assert.Equal(t, (ep.Picture.FrameNum+15)%16, ep.Header.RefPicList0[0].Picture.FrameNum)
			assert.LessOrEqual(t, len(ep.Header.RefPicList0), 2)
			assert.Equal(t, annexb.NalSlice, annexb.Type(ep.Data[4:]))
		}
		assert.LessOrEqual(t, ep.PoolSize, 2)
	}

	assert.Equal(t,
		[]gop.FrameType{gop.FrameIDR, gop.FrameP, gop.FrameP, gop.FrameI, gop.FrameP, gop.FrameP,
			gop.FrameIDR, gop.FrameP, gop.FrameP, gop.FrameI, gop.FrameP, gop.FrameP},
		types)
	assert.Len(t, sub.jobs, 12)
	assert.Len(t, rec.pictures, 12)
	assert.Equal(t, s.ID(), rec.ids[0])

	// 池中最多2个表面，其余都已释放
	assert.Len(t, sub.released, 10)
	require.NoError(t, s.Close())
	assert.Len(t, sub.released, 12)
}

func TestSessionList0ExcludesCurrentPicture(t *testing.T) {
	cfg := testConfig()
	sub := &fakeSubmitter{}
	s, err := SessionFactory(cfg, sub)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := s.Encode(context.Background(), graySample(cfg))
		require.NoError(t, err)
	}
	for _, job := range sub.jobs {
		for _, r := range job.Header.RefPicList0 {
			assert.NotEqual(t, job.Picture.DisplayOrder, r.Picture.DisplayOrder)
			assert.Less(t, r.Picture.DisplayOrder, job.Picture.DisplayOrder)
		}
	}
}

func TestSessionRepeatHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.RepeatHeaders = true
	s, err := SessionFactory(cfg, &fakeSubmitter{})
	require.NoError(t, err)

	ep, err := s.Encode(context.Background(), graySample(cfg))
	require.NoError(t, err)
	units := annexb.Split(ep.Data)
	require.Len(t, units, 3)
	assert.Equal(t, annexb.NalSPS, annexb.Type(units[0]))
	assert.Equal(t, annexb.NalPPS, annexb.Type(units[1]))
	assert.Equal(t, annexb.NalIDR, annexb.Type(units[2]))

	ep, err = s.Encode(context.Background(), graySample(cfg))
	require.NoError(t, err)
	assert.Len(t, annexb.Split(ep.Data), 1)

	headers, err := s.GetHeaders()
	require.NoError(t, err)
	assert.Equal(t, s.ParameterSets().Headers(), headers)
}

func TestSessionBrokenAfterFailure(t *testing.T) {
	cfg := testConfig()
	sub := &fakeSubmitter{failAt: 2}
	s, err := SessionFactory(cfg, sub)
	require.NoError(t, err)

	_, err = s.Encode(context.Background(), graySample(cfg))
	require.NoError(t, err)
	_, err = s.Encode(context.Background(), graySample(cfg))
	require.Error(t, err)

	_, err = s.Encode(context.Background(), graySample(cfg))
	assert.True(t, errors.Is(err, ErrSessionBroken))
}

func TestSessionForceIDR(t *testing.T) {
	cfg := testConfig()
	s, err := SessionFactory(cfg, &fakeSubmitter{})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := s.Encode(context.Background(), graySample(cfg))
		require.NoError(t, err)
	}
	s.ForceIDR()
	ep, err := s.Encode(context.Background(), graySample(cfg))
	require.NoError(t, err)
	assert.Equal(t, gop.FrameIDR, ep.Picture.Type)
	assert.Equal(t, uint32(1), ep.Header.IDRPicID)
	assert.Len(t, s.PoolEntries(), 1)
	assert.Equal(t, 2, s.pool.Capacity())
}

func TestSessionFactoryRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.GOP.IPPeriod = 2
	_, err := SessionFactory(cfg, &fakeSubmitter{})
	var cfgErr *gop.ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = SessionFactory(testConfig(), nil)
	assert.Error(t, err)
}

func TestPCMSessionProducesParsableStream(t *testing.T) {
	cfg := testConfig()
	cfg.Width, cfg.Height = 40, 30 // 需要裁剪的尺寸
	cfg.RepeatHeaders = true
	sub, err := PCMSubmitterFactory(cfg)
	require.NoError(t, err)
	s, err := SessionFactory(cfg, sub)
	require.NoError(t, err)

	var stream []byte
	var pictures []gop.Picture
	for i := 0; i < 8; i++ {
		sample := graySample(cfg)
		sample.Data[i] = 0x00 // 制造连续0字节
		sample.Data[i+1] = 0x00
		ep, err := s.Encode(context.Background(), sample)
		require.NoError(t, err)
		stream = append(stream, ep.Data...)
		pictures = append(pictures, ep.Picture)
	}
	assert.Equal(t, 2, sub.LiveSurfaces())

	units := annexb.Split(stream)
	require.Len(t, units, 12) // 两次SPS/PPS + 8个片

	spsMap := map[uint32]*avc.SPS{}
	ppsMap := map[uint32]*avc.PPS{}
	slice := 0
	for _, nal := range units {
		switch annexb.Type(nal) {
		case annexb.NalSPS:
			sps, err := avc.ParseSPSNALUnit(nal, true)
			require.NoError(t, err)
			assert.EqualValues(t, 40, sps.Width)
			assert.EqualValues(t, 30, sps.Height)
			spsMap[0] = sps
		case annexb.NalPPS:
			pps, err := avc.ParsePPSNALUnit(nal, spsMap)
			require.NoError(t, err)
			ppsMap[0] = pps
		default:
			sh, err := avc.ParseSliceHeader(nal, spsMap, ppsMap)
			require.NoError(t, err)
			assert.EqualValues(t, pictures[slice].FrameNum, sh.FrameNum)
			assert.EqualValues(t, pictures[slice].PocLsb, sh.PicOrderCntLsb)
			slice++
		}
	}
	assert.Equal(t, 8, slice)
	require.NoError(t, s.Close())
	assert.Zero(t, sub.LiveSurfaces())
}

func TestPCMSubmitterRejects(t *testing.T) {
	cfg := testConfig()
	cfg.Profile = h264.ProfileHigh
	_, err := PCMSubmitterFactory(cfg)
	assert.Error(t, err)

	sub, err := PCMSubmitterFactory(testConfig())
	require.NoError(t, err)
	s, err := SessionFactory(testConfig(), sub)
	require.NoError(t, err)

	_, err = s.Encode(context.Background(), Sample{Width: 64, Height: 48, Data: make([]byte, 10)})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err = SessionFactory(testConfig(), sub)
	require.NoError(t, err)
	_, err = s.Encode(ctx, graySample(testConfig()))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEncoderConfigStreamInfo(t *testing.T) {
	cfg := testConfig()
	cfg.FPS = 29.97
	info := cfg.StreamInfo()
	assert.Equal(t, uint32(29970), info.FrameRateNum)
	assert.Equal(t, uint32(1000), info.FrameRateDen)

	cfg.FPS = 0
	info = cfg.StreamInfo()
	assert.Zero(t, info.FrameRateNum)
	assert.NoError(t, info.Validate())
}

var _ Encoder = (*Session)(nil)
