package h264

import (
	"fmt"

	"github.com/stydxm/gopsched/pkg/gop"
)

// ParameterSets 会话内不变的SPS/PPS
type ParameterSets struct {
	SPS SPS
	PPS PPS
}

// DeriveParameterSets 校验输入并计算SPS/PPS
func DeriveParameterSets(settings gop.Settings, info StreamInfo) (*ParameterSets, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("码流参数错误: %w", err)
	}
	sps := DeriveSPS(settings, info)
	return &ParameterSets{SPS: sps, PPS: DerivePPS(sps, info)}, nil
}

// Headers 返回按顺序拼接的SPS与PPS Annex B字节流
func (ps *ParameterSets) Headers() []byte {
	sps := ps.SPS.NAL()
	pps := ps.PPS.NAL()
	out := make([]byte, 0, len(sps)+len(pps))
	out = append(out, sps...)
	return append(out, pps...)
}
