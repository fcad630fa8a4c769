package gop

// FrameType 图像编码类型
type FrameType uint8

const (
	FrameIDR FrameType = iota
	FrameI
	FrameP
	// FrameB 保留，ip_period为1时不会产生
	FrameB
)

func (t FrameType) String() string {
	switch t {
	case FrameIDR:
		return "IDR"
	case FrameI:
		return "I"
	case FrameP:
		return "P"
	case FrameB:
		return "B"
	default:
		return "UNKNOWN"
	}
}

// IsIntra IDR和I帧不需要list0
func (t FrameType) IsIntra() bool {
	return t == FrameIDR || t == FrameI
}

// Picture 每编码一帧产生一个
type Picture struct {
	Type         FrameType
	FrameNum     uint32 // 模2^log2_max_frame_num，IDR处归0
	DisplayOrder uint64 // 全局显示顺序，不归0
	PocLsb       uint32 // 相对最近IDR的显示顺序，模2^log2_max_pic_order_cnt_lsb
	PocTopField  int64  // 帧编码时为相对位置的2倍
	IsReference  bool
	IDRID        uint16 // 每个IDR加1，65536回绕
}
