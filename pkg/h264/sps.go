package h264

import (
	"github.com/stydxm/gopsched/pkg/annexb"
	"github.com/stydxm/gopsched/pkg/bitstream"
	"github.com/stydxm/gopsched/pkg/gop"
)

// SPS 序列参数集中由会话决定的字段
type SPS struct {
	ProfileIdc      ProfileIdc
	ConstraintFlags uint8
	LevelIdc        uint8
	ID              uint32

	Log2MaxFrameNumMinus4       uint32
	PicOrderCntType             uint32
	Log2MaxPicOrderCntLsbMinus4 uint32
	MaxNumRefFrames             uint32
	GapsInFrameNumAllowed       bool

	PicWidthInMbsMinus1       uint32
	PicHeightInMapUnitsMinus1 uint32
	FrameMbsOnly              bool
	Direct8x8Inference        bool

	FrameCropping     bool
	CropLeft          uint32
	CropRight         uint32
	CropTop           uint32
	CropBottom        uint32
	TimingInfoPresent bool
	NumUnitsInTick    uint32
	TimeScale         uint32
}

// DeriveSPS 由GOP设置与码流参数一次性计算SPS
func DeriveSPS(settings gop.Settings, info StreamInfo) SPS {
	sps := SPS{
		ProfileIdc:                  info.Profile,
		LevelIdc:                    info.Level,
		Log2MaxFrameNumMinus4:       uint32(settings.Log2MaxFrameNum) - 4,
		PicOrderCntType:             0,
		Log2MaxPicOrderCntLsbMinus4: uint32(settings.Log2MaxPicOrderCntLsb) - 4,
		MaxNumRefFrames:             settings.NumRefFrames,
		PicWidthInMbsMinus1:         info.WidthInMbs() - 1,
		PicHeightInMapUnitsMinus1:   info.HeightInMbs() - 1,
		FrameMbsOnly:                true,
		Direct8x8Inference:          true,
	}

	switch info.Profile {
	case ProfileBaseline:
		sps.ConstraintFlags = 0xC0 // constraint_set0_flag + constraint_set1_flag: Constrained Baseline
	case ProfileMain:
		sps.ConstraintFlags = 0x40
	}

	// 4:2:0帧编码时裁剪单位为2个像素
	cropW := info.WidthInMbs()*16 - info.Width
	cropH := info.HeightInMbs()*16 - info.Height
	if cropW > 0 || cropH > 0 {
		sps.FrameCropping = true
		sps.CropRight = cropW / 2
		sps.CropBottom = cropH / 2
	}

	if info.FrameRateNum > 0 {
		sps.TimingInfoPresent = true
		sps.NumUnitsInTick = info.FrameRateDen
		sps.TimeScale = info.FrameRateNum * 2
	}
	return sps
}

func (s SPS) highProfile() bool {
	return s.ProfileIdc == ProfileHigh
}

// WriteTo 按7.3.2.1写出seq_parameter_set_rbsp()
func (s SPS) WriteTo(bw *bitstream.Writer) {
	bw.WriteBits(uint32(s.ProfileIdc), 8)
	bw.WriteBits(uint32(s.ConstraintFlags), 8) // constraint_set0..5 + reserved_zero_2bits
	bw.WriteBits(uint32(s.LevelIdc), 8)
	bw.WriteUE(s.ID)

	if s.highProfile() {
		bw.WriteUE(1)  // chroma_format_idc 4:2:0
		bw.WriteUE(0)  // bit_depth_luma_minus8
		bw.WriteUE(0)  // bit_depth_chroma_minus8
		bw.WriteBit(0) // qpprime_y_zero_transform_bypass_flag
		bw.WriteBit(0) // seq_scaling_matrix_present_flag
	}

	bw.WriteUE(s.Log2MaxFrameNumMinus4)
	bw.WriteUE(s.PicOrderCntType)
	bw.WriteUE(s.Log2MaxPicOrderCntLsbMinus4)
	bw.WriteUE(s.MaxNumRefFrames)
	bw.WriteFlag(s.GapsInFrameNumAllowed)
	bw.WriteUE(s.PicWidthInMbsMinus1)
	bw.WriteUE(s.PicHeightInMapUnitsMinus1)
	bw.WriteFlag(s.FrameMbsOnly)
	bw.WriteFlag(s.Direct8x8Inference)

	bw.WriteFlag(s.FrameCropping)
	if s.FrameCropping {
		bw.WriteUE(s.CropLeft)
		bw.WriteUE(s.CropRight)
		bw.WriteUE(s.CropTop)
		bw.WriteUE(s.CropBottom)
	}

	bw.WriteFlag(s.TimingInfoPresent) // vui_parameters_present_flag
	if s.TimingInfoPresent {
		s.writeVUI(bw)
	}

	bw.TrailingBits()
}

// E.1.1，只携带timing_info
func (s SPS) writeVUI(bw *bitstream.Writer) {
	bw.WriteBit(0) // aspect_ratio_info_present_flag
	bw.WriteBit(0) // overscan_info_present_flag
	bw.WriteBit(0) // video_signal_type_present_flag
	bw.WriteBit(0) // chroma_loc_info_present_flag

	bw.WriteBit(1) // timing_info_present_flag
	bw.WriteBits(s.NumUnitsInTick, 32)
	bw.WriteBits(s.TimeScale, 32)
	bw.WriteBit(1) // fixed_frame_rate_flag

	bw.WriteBit(0) // nal_hrd_parameters_present_flag
	bw.WriteBit(0) // vcl_hrd_parameters_present_flag
	bw.WriteBit(0) // pic_struct_present_flag
	bw.WriteBit(0) // bitstream_restriction_flag
}

// RBSP 返回序列化后的RBSP
func (s SPS) RBSP() []byte {
	bw := bitstream.NewWriter(64)
	s.WriteTo(bw)
	return bw.Bytes()
}

// NAL 返回Annex B格式的SPS
func (s SPS) NAL() []byte {
	return annexb.Packetize(annexb.NalSPS, 3, s.RBSP())
}
