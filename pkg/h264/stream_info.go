package h264

import "fmt"

// ProfileIdc H.264 profile_idc
type ProfileIdc uint8

const (
	ProfileBaseline ProfileIdc = 66
	ProfileMain     ProfileIdc = 77
	ProfileHigh     ProfileIdc = 100
)

func (p ProfileIdc) String() string {
	switch p {
	case ProfileBaseline:
		return "baseline"
	case ProfileMain:
		return "main"
	case ProfileHigh:
		return "high"
	default:
		return fmt.Sprintf("profile(%d)", uint8(p))
	}
}

// ParseProfile 把配置中的名字转换为ProfileIdc
func ParseProfile(name string) (ProfileIdc, error) {
	switch name {
	case "baseline", "":
		return ProfileBaseline, nil
	case "main":
		return ProfileMain, nil
	case "high":
		return ProfileHigh, nil
	default:
		return 0, fmt.Errorf("不支持的profile: %q", name)
	}
}

const (
	// A.3: 最大级别的MaxFS为139264，宽高不超过sqrt(MaxFS*8)个宏块
	MaxMbWidth  = 1055
	MaxMbHeight = 1055
	MaxWidth    = MaxMbWidth * 16
	MaxHeight   = MaxMbHeight * 16
)

// StreamInfo 由会话外部提供的图像尺寸与码流参数
type StreamInfo struct {
	Width        uint32
	Height       uint32
	Profile      ProfileIdc
	Level        uint8 // level_idc，例如41表示4.1
	QP           int32 // 初始量化参数 0-51
	FrameRateNum uint32
	FrameRateDen uint32
}

// Validate 检查尺寸与参数
func (si StreamInfo) Validate() error {
	if si.Width == 0 || si.Height == 0 {
		return fmt.Errorf("图像尺寸非法: %dx%d", si.Width, si.Height)
	}
	if si.Width%2 != 0 || si.Height%2 != 0 {
		return fmt.Errorf("4:2:0要求宽高为偶数: %dx%d", si.Width, si.Height)
	}
	if si.Width > MaxWidth || si.Height > MaxHeight {
		return fmt.Errorf("图像尺寸超出范围: %dx%d", si.Width, si.Height)
	}
	switch si.Profile {
	case ProfileBaseline, ProfileMain, ProfileHigh:
	default:
		return fmt.Errorf("不支持的profile_idc: %d", si.Profile)
	}
	if si.QP < 0 || si.QP > 51 {
		return fmt.Errorf("QP超出范围: %d", si.QP)
	}
	if (si.FrameRateNum == 0) != (si.FrameRateDen == 0) {
		return fmt.Errorf("帧率不完整: %d/%d", si.FrameRateNum, si.FrameRateDen)
	}
	return nil
}

// WidthInMbs 宏块列数
func (si StreamInfo) WidthInMbs() uint32 {
	return (si.Width + 15) / 16
}

// HeightInMbs 宏块行数（仅帧编码）
func (si StreamInfo) HeightInMbs() uint32 {
	return (si.Height + 15) / 16
}

// CABAC Baseline使用CAVLC，其余使用CABAC
func (si StreamInfo) CABAC() bool {
	return si.Profile != ProfileBaseline
}
