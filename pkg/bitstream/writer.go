package bitstream

// Writer 按MSB优先顺序把比特写入字节缓冲区
type Writer struct {
	data   []byte
	bitPos int // 当前字节中已写入的比特数，0表示字节对齐
}

// NewWriter 创建一个预分配capacity字节的Writer
func NewWriter(capacity int) *Writer {
	return &Writer{data: make([]byte, 0, capacity)}
}

// WriteBits 写入value的低numBits位，numBits不超过32
func (w *Writer) WriteBits(value uint32, numBits int) {
	for numBits > 0 {
		if w.bitPos == 0 {
			w.data = append(w.data, 0)
		}

		n := 8 - w.bitPos
		if n > numBits {
			n = numBits
		}

		shift := numBits - n
		bits := (value >> shift) & (1<<n - 1)
		w.data[len(w.data)-1] |= byte(bits << (8 - w.bitPos - n))

		w.bitPos = (w.bitPos + n) % 8
		numBits -= n
	}
}

// WriteBit 写入单个比特
func (w *Writer) WriteBit(value uint32) {
	w.WriteBits(value&1, 1)
}

// WriteFlag 把布尔值写为一个比特
func (w *Writer) WriteFlag(flag bool) {
	if flag {
		w.WriteBit(1)
	} else {
		w.WriteBit(0)
	}
}

// WriteUE 写入无符号指数哥伦布码 ue(v)
func (w *Writer) WriteUE(value uint32) {
	w.writeExpGolomb(uint64(value))
}

// codeNum最大为2^32（se(v)的MinInt32），前缀最多32个0
func (w *Writer) writeExpGolomb(codeNum uint64) {
	code := codeNum + 1
	leadingZeroBits := 0
	for t := code; t > 1; t >>= 1 {
		leadingZeroBits++
	}

	w.WriteBits(0, leadingZeroBits)
	// 前缀中的1和后缀一起写出
	if leadingZeroBits == 32 {
		w.WriteBit(1)
		w.WriteBits(uint32(code), 32)
		return
	}
	w.WriteBits(uint32(code), leadingZeroBits+1)
}

// WriteSE 写入有符号指数哥伦布码 se(v)
func (w *Writer) WriteSE(value int32) {
	v := int64(value)
	if v <= 0 {
		w.writeExpGolomb(uint64(-v * 2))
	} else {
		w.writeExpGolomb(uint64(v*2 - 1))
	}
}

// WriteBytes 先对齐到字节边界再追加原始字节
func (w *Writer) WriteBytes(data []byte) {
	w.AlignZero()
	w.data = append(w.data, data...)
}

// ByteAligned 当前是否处于字节边界
func (w *Writer) ByteAligned() bool {
	return w.bitPos == 0
}

// AlignZero 用0填充到字节边界（如pcm_alignment_zero_bit）
func (w *Writer) AlignZero() {
	if w.bitPos != 0 {
		w.WriteBits(0, 8-w.bitPos)
	}
}

// TrailingBits 写入rbsp_trailing_bits，即使已经对齐也必须写停止位
func (w *Writer) TrailingBits() {
	w.WriteBit(1)
	w.AlignZero()
}

// BitLen 已写入的比特数
func (w *Writer) BitLen() int {
	if w.bitPos == 0 {
		return len(w.data) * 8
	}
	return (len(w.data)-1)*8 + w.bitPos
}

// Bytes 返回已写入的数据，未满的末字节低位为0
func (w *Writer) Bytes() []byte {
	return w.data
}
