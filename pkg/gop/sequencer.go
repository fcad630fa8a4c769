package gop

// Sequencer 按编码顺序决定下一帧的类型和编号，不可并发调用
type Sequencer struct {
	settings Settings

	displayOrder uint64
	codedCount   uint64
	lastIDR      uint64
	frameNum     uint32
	nextIDRID    uint16
	forceIDR     bool
	started      bool
}

// NewSequencer 校验设置并创建调度器
func NewSequencer(settings Settings) (*Sequencer, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Sequencer{settings: settings}, nil
}

// Settings 返回创建时的设置
func (s *Sequencer) Settings() Settings {
	return s.settings
}

// ForceIDR 下一帧强制为IDR，GOP周期从该帧重新开始
func (s *Sequencer) ForceIDR() {
	s.forceIDR = true
}

// CodedCount 已产生的图像数
func (s *Sequencer) CodedCount() uint64 {
	return s.codedCount
}

// Next 产生下一帧的描述
func (s *Sequencer) Next() Picture {
	order := s.displayOrder
	s.displayOrder++
	s.codedCount++

	pic := Picture{
		DisplayOrder: order,
		IsReference:  s.settings.IPPeriod == 1,
	}

	pos := uint64(0)
	if s.started {
		pos = (order - s.lastIDR) % uint64(s.settings.IDRPeriod)
	}

	switch {
	case !s.started || s.forceIDR || pos == 0:
		pic.Type = FrameIDR
		s.started = true
		s.forceIDR = false
		s.lastIDR = order
		s.frameNum = 0
		pic.IDRID = s.nextIDRID
		s.nextIDRID++
	case pos%uint64(s.settings.IntraPeriod) == 0:
		pic.Type = FrameI
		s.frameNum = (s.frameNum + 1) % s.settings.MaxFrameNum()
	default:
		pic.Type = FrameP
		s.frameNum = (s.frameNum + 1) % s.settings.MaxFrameNum()
	}

	delta := order - s.lastIDR
	pic.FrameNum = s.frameNum
	pic.PocLsb = uint32(delta % uint64(s.settings.MaxPicOrderCntLsb()))
	pic.PocTopField = int64(delta) * 2
	return pic
}
