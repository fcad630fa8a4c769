package gop

// Settings 编码会话的静态GOP参数，创建后不可修改
type Settings struct {
	IDRPeriod             uint32 `yaml:"idr_period"`   // 每个IDR周期的图像数
	IntraPeriod           uint32 `yaml:"intra_period"` // 非IDR帧内刷新间隔，必须整除IDRPeriod
	IPPeriod              uint32 `yaml:"ip_period"`    // 参考帧间距，目前只支持1（无B帧）
	Log2MaxFrameNum       uint8  `yaml:"log2_max_frame_num"`
	Log2MaxPicOrderCntLsb uint8  `yaml:"log2_max_pic_order_cnt_lsb"`
	NumRefFrames          uint32 `yaml:"num_ref_frames"` // 参考帧池容量
}

const (
	minLog2 = 4
	maxLog2 = 16

	// A.3: MaxDpbFrames 不超过16
	MaxRefFrames = 16
)

// DefaultSettings 返回IDR间隔30、只有P帧的设置
func DefaultSettings() Settings {
	return Settings{
		IDRPeriod:             30,
		IntraPeriod:           30,
		IPPeriod:              1,
		Log2MaxFrameNum:       8,
		Log2MaxPicOrderCntLsb: 8,
		NumRefFrames:          1,
	}
}

// MaxFrameNum frame_num的模数
func (s Settings) MaxFrameNum() uint32 {
	return 1 << s.Log2MaxFrameNum
}

// MaxPicOrderCntLsb pic_order_cnt_lsb的模数
func (s Settings) MaxPicOrderCntLsb() uint32 {
	return 1 << s.Log2MaxPicOrderCntLsb
}

// Validate 检查设置是否合法
func (s Settings) Validate() error {
	if s.IPPeriod != 1 {
		return &ConfigError{Field: "ip_period", Value: s.IPPeriod, Reason: "不支持B帧，ip_period必须为1"}
	}
	if s.Log2MaxFrameNum < minLog2 || s.Log2MaxFrameNum > maxLog2 {
		return &ConfigError{Field: "log2_max_frame_num", Value: s.Log2MaxFrameNum, Reason: "必须在[4,16]内"}
	}
	if s.Log2MaxPicOrderCntLsb < minLog2 || s.Log2MaxPicOrderCntLsb > maxLog2 {
		return &ConfigError{Field: "log2_max_pic_order_cnt_lsb", Value: s.Log2MaxPicOrderCntLsb, Reason: "必须在[4,16]内"}
	}
	if s.IntraPeriod == 0 {
		return &ConfigError{Field: "intra_period", Value: s.IntraPeriod, Reason: "不能为0"}
	}
	if s.IDRPeriod == 0 {
		return &ConfigError{Field: "idr_period", Value: s.IDRPeriod, Reason: "不能为0"}
	}
	if s.IDRPeriod%s.IntraPeriod != 0 {
		return &ConfigError{Field: "idr_period", Value: s.IDRPeriod, Reason: "必须是intra_period的整数倍"}
	}
	if s.NumRefFrames == 0 || s.NumRefFrames > MaxRefFrames {
		return &ConfigError{Field: "num_ref_frames", Value: s.NumRefFrames, Reason: "必须在[1,16]内"}
	}
	// 参考帧池中的frame_num必须互不相同
	if s.NumRefFrames >= s.MaxFrameNum() {
		return &ConfigError{Field: "num_ref_frames", Value: s.NumRefFrames, Reason: "必须小于2^log2_max_frame_num"}
	}
	return nil
}
