package annexb

// NalUnitType H.264 NAL单元类型（Table 7-1）
type NalUnitType uint8

const (
	NalSlice         NalUnitType = 1 // 非IDR图像的片
	NalIDR           NalUnitType = 5 // IDR图像的片
	NalSEI           NalUnitType = 6
	NalSPS           NalUnitType = 7
	NalPPS           NalUnitType = 8
	NalAUD           NalUnitType = 9
	NalEndOfSequence NalUnitType = 10
	NalEndOfStream   NalUnitType = 11

	NalTypeBitmask = 0x1F
)

func (t NalUnitType) String() string {
	switch t {
	case NalSlice:
		return "SLICE"
	case NalIDR:
		return "IDR"
	case NalSEI:
		return "SEI"
	case NalSPS:
		return "SPS"
	case NalPPS:
		return "PPS"
	case NalAUD:
		return "AUD"
	case NalEndOfSequence:
		return "EOSEQ"
	case NalEndOfStream:
		return "EOSTREAM"
	default:
		return "UNKNOWN"
	}
}

// StartCode Annex B起始码
var StartCode = []byte{0x00, 0x00, 0x00, 0x01}

// Packetize 给RBSP加上起始码、NAL头和防竞争字节
func Packetize(nalType NalUnitType, refIdc uint8, rbsp []byte) []byte {
	escaped := Escape(rbsp)

	// forbidden_zero_bit (1) | nal_ref_idc (2) | nal_unit_type (5)
	header := (refIdc&0x03)<<5 | uint8(nalType)&NalTypeBitmask

	out := make([]byte, 0, len(StartCode)+1+len(escaped))
	out = append(out, StartCode...)
	out = append(out, header)
	return append(out, escaped...)
}

// Escape 在两个连续0x00之后、值不大于0x03的字节之前插入0x03
func Escape(rbsp []byte) []byte {
	out := make([]byte, 0, len(rbsp)+len(rbsp)/2)
	zeros := 0
	for _, b := range rbsp {
		if zeros >= 2 && b <= 0x03 {
			out = append(out, 0x03)
			zeros = 0
		}
		out = append(out, b)
		if b == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// Unescape 去掉紧跟在00 00之后的0x03，把EBSP还原为RBSP
func Unescape(ebsp []byte) []byte {
	out := make([]byte, 0, len(ebsp))
	for off := 0; off < len(ebsp); {
		if len(ebsp)-off >= 3 && ebsp[off] == 0 && ebsp[off+1] == 0 && ebsp[off+2] == 0x03 {
			out = append(out, 0, 0)
			off += 3
			continue
		}
		out = append(out, ebsp[off])
		off++
	}
	return out
}

// Split 按起始码切分Annex B字节流，返回不含起始码的NAL单元（仍含防竞争字节）
func Split(stream []byte) [][]byte {
	var units [][]byte
	start := -1
	for off := 0; off+2 < len(stream); {
		if stream[off+2] > 1 {
			off += 3
			continue
		}
		if stream[off] == 0 && stream[off+1] == 0 && stream[off+2] == 1 {
			if start >= 0 {
				end := off
				// 4字节起始码的前导0不属于上一个单元
				if end > start && stream[end-1] == 0 {
					end--
				}
				if end > start {
					units = append(units, stream[start:end])
				}
			}
			off += 3
			start = off
			continue
		}
		off++
	}
	if start >= 0 && start < len(stream) {
		units = append(units, stream[start:])
	}
	return units
}

// Type 返回NAL单元的类型，nal不含起始码
func Type(nal []byte) NalUnitType {
	if len(nal) == 0 {
		return 0
	}
	return NalUnitType(nal[0] & NalTypeBitmask)
}
