package h264

import (
	"github.com/stydxm/gopsched/pkg/annexb"
	"github.com/stydxm/gopsched/pkg/bitstream"
	"github.com/stydxm/gopsched/pkg/dpb"
	"github.com/stydxm/gopsched/pkg/gop"
)

// SliceType slice_type，使用5~9表示整帧同类型
type SliceType uint32

const (
	SliceP SliceType = 5
	SliceI SliceType = 7
)

// SliceHeader 每帧一个的片头字段
type SliceHeader struct {
	FrameType gop.FrameType
	SliceType SliceType
	NalType   annexb.NalUnitType
	NalRefIdc uint8

	FirstMbInSlice uint32
	PPSID          uint32
	FrameNum       uint32
	IDRPicID       uint32 // 仅IDR有效
	PicOrderCntLsb uint32

	// 仅P帧有效
	RefPicList0                []dpb.RefPic
	NumRefIdxActiveOverride    bool
	NumRefIdxL0ActiveMinus1    uint32
	SliceQPDelta               int32
	DisableDeblockingFilterIdc uint32
}

// IsIDR 是否IDR片
func (h SliceHeader) IsIDR() bool {
	return h.FrameType == gop.FrameIDR
}

// DeriveSliceHeader 结合图像字段与list0计算片头
func DeriveSliceHeader(pic gop.Picture, list0 []dpb.RefPic, pps PPS) SliceHeader {
	h := SliceHeader{
		FrameType:      pic.Type,
		SliceType:      SliceP,
		NalType:        annexb.NalSlice,
		PPSID:          pps.ID,
		FrameNum:       pic.FrameNum,
		PicOrderCntLsb: pic.PocLsb,
	}
	if pic.IsReference {
		h.NalRefIdc = 2
	}
	if pic.Type.IsIntra() {
		h.SliceType = SliceI
	}

	switch pic.Type {
	case gop.FrameIDR:
		h.NalType = annexb.NalIDR
		h.NalRefIdc = 3
		h.IDRPicID = uint32(pic.IDRID)
	case gop.FrameP:
		h.RefPicList0 = list0
		if len(list0) > 0 {
			h.NumRefIdxL0ActiveMinus1 = uint32(len(list0) - 1)
		}
		h.NumRefIdxActiveOverride = h.NumRefIdxL0ActiveMinus1 != pps.NumRefIdxL0DefaultActiveMinus1
	}
	return h
}

// WriteTo 按7.3.3写出slice_header()，不写trailing bits，片数据紧随其后
func (h SliceHeader) WriteTo(bw *bitstream.Writer, sps SPS, pps PPS) {
	bw.WriteUE(h.FirstMbInSlice)
	bw.WriteUE(uint32(h.SliceType))
	bw.WriteUE(h.PPSID)
	bw.WriteBits(h.FrameNum, int(sps.Log2MaxFrameNumMinus4+4))

	if h.IsIDR() {
		bw.WriteUE(h.IDRPicID)
	}

	// pic_order_cnt_type == 0
	bw.WriteBits(h.PicOrderCntLsb, int(sps.Log2MaxPicOrderCntLsbMinus4+4))

	if h.SliceType == SliceP {
		bw.WriteFlag(h.NumRefIdxActiveOverride)
		if h.NumRefIdxActiveOverride {
			bw.WriteUE(h.NumRefIdxL0ActiveMinus1)
		}
		// list0已是默认顺序，不需要修改
		bw.WriteBit(0) // ref_pic_list_modification_flag_l0
	}

	if h.NalRefIdc != 0 {
		if h.IsIDR() {
			bw.WriteBit(0) // no_output_of_prior_pics_flag
			bw.WriteBit(0) // long_term_reference_flag
		} else {
			bw.WriteBit(0) // adaptive_ref_pic_marking_mode_flag，滑动窗口
		}
	}

	if pps.EntropyCodingMode && h.SliceType != SliceI {
		bw.WriteUE(0) // cabac_init_idc
	}

	bw.WriteSE(h.SliceQPDelta)

	if pps.DeblockingFilterControlPresent {
		bw.WriteUE(h.DisableDeblockingFilterIdc)
		if h.DisableDeblockingFilterIdc != 1 {
			bw.WriteSE(0) // slice_alpha_c0_offset_div2
			bw.WriteSE(0) // slice_beta_offset_div2
		}
	}
}
