package h264

import (
	"github.com/stydxm/gopsched/pkg/annexb"
	"github.com/stydxm/gopsched/pkg/bitstream"
)

// PPS 图像参数集
type PPS struct {
	ID                             uint32
	SPSID                          uint32
	EntropyCodingMode              bool // true为CABAC
	NumRefIdxL0DefaultActiveMinus1 uint32
	PicInitQPMinus26               int32
	DeblockingFilterControlPresent bool
	Transform8x8Mode               bool
	HighProfileSyntax              bool // 写出transform_8x8_mode_flag等High档次字段
}

// DerivePPS 由SPS与码流参数计算PPS
func DerivePPS(sps SPS, info StreamInfo) PPS {
	return PPS{
		SPSID:                          sps.ID,
		EntropyCodingMode:              info.CABAC(),
		NumRefIdxL0DefaultActiveMinus1: sps.MaxNumRefFrames - 1,
		PicInitQPMinus26:               info.QP - 26,
		DeblockingFilterControlPresent: true,
		Transform8x8Mode:               info.Profile == ProfileHigh,
		HighProfileSyntax:              info.Profile == ProfileHigh,
	}
}

// WriteTo 按7.3.2.2写出pic_parameter_set_rbsp()
func (p PPS) WriteTo(bw *bitstream.Writer) {
	bw.WriteUE(p.ID)
	bw.WriteUE(p.SPSID)
	bw.WriteFlag(p.EntropyCodingMode)
	bw.WriteBit(0) // bottom_field_pic_order_in_frame_present_flag
	bw.WriteUE(0)  // num_slice_groups_minus1
	bw.WriteUE(p.NumRefIdxL0DefaultActiveMinus1)
	bw.WriteUE(0)      // num_ref_idx_l1_default_active_minus1
	bw.WriteBit(0)     // weighted_pred_flag
	bw.WriteBits(0, 2) // weighted_bipred_idc
	bw.WriteSE(p.PicInitQPMinus26)
	bw.WriteSE(0) // pic_init_qs_minus26
	bw.WriteSE(0) // chroma_qp_index_offset
	bw.WriteFlag(p.DeblockingFilterControlPresent)
	bw.WriteBit(0) // constrained_intra_pred_flag
	bw.WriteBit(0) // redundant_pic_cnt_present_flag

	if p.HighProfileSyntax {
		bw.WriteFlag(p.Transform8x8Mode)
		bw.WriteBit(0) // pic_scaling_matrix_present_flag
		bw.WriteSE(0)  // second_chroma_qp_index_offset
	}

	bw.TrailingBits()
}

// RBSP 返回序列化后的RBSP
func (p PPS) RBSP() []byte {
	bw := bitstream.NewWriter(16)
	p.WriteTo(bw)
	return bw.Bytes()
}

// NAL 返回Annex B格式的PPS
func (p PPS) NAL() []byte {
	return annexb.Packetize(annexb.NalPPS, 3, p.RBSP())
}
