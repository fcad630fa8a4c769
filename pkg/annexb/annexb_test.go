package annexb

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeInsertsPreventionByte(t *testing.T) {
	cases := []struct {
		name string
		rbsp []byte
		want []byte
	}{
		{"zero", []byte{0x00, 0x00, 0x00}, []byte{0x00, 0x00, 0x03, 0x00}},
		{"one", []byte{0x00, 0x00, 0x01}, []byte{0x00, 0x00, 0x03, 0x01}},
		{"two", []byte{0x00, 0x00, 0x02}, []byte{0x00, 0x00, 0x03, 0x02}},
		{"three", []byte{0x00, 0x00, 0x03}, []byte{0x00, 0x00, 0x03, 0x03}},
		{"four untouched", []byte{0x00, 0x00, 0x04}, []byte{0x00, 0x00, 0x04}},
		{"trailing zeros untouched", []byte{0x11, 0x00, 0x00}, []byte{0x11, 0x00, 0x00}},
		{"run of zeros", []byte{0x00, 0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00, 0x03, 0x00, 0x00, 0x03, 0x00}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Escape(c.rbsp)
			assert.Equal(t, c.want, got)
			assert.Equal(t, c.rbsp, Unescape(got))
		})
	}
}

func TestEscapeRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		rbsp := make([]byte, rng.Intn(64))
		for j := range rbsp {
			// 偏向0x00~0x03，尽量触发插入
			rbsp[j] = byte(rng.Intn(5))
		}
		escaped := Escape(rbsp)
		require.Equal(t, rbsp, Unescape(escaped))
		requireNoStartCodeEmulation(t, escaped)
	}
}

func TestPacketize(t *testing.T) {
	nal := Packetize(NalSPS, 3, []byte{0x42, 0x00, 0x00, 0x01})
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01, 0x67, 0x42, 0x00, 0x00, 0x03, 0x01}, nal)

	nal = Packetize(NalIDR, 3, []byte{0x88})
	assert.Equal(t, byte(0x65), nal[4])
	nal = Packetize(NalSlice, 2, []byte{0x9a})
	assert.Equal(t, byte(0x41), nal[4])
	nal = Packetize(NalPPS, 3, []byte{0xce})
	assert.Equal(t, byte(0x68), nal[4])
}

func TestSplit(t *testing.T) {
	var stream []byte
	stream = append(stream, Packetize(NalSPS, 3, []byte{0x42, 0x00, 0x00, 0x00, 0x1f})...)
	stream = append(stream, 0x00, 0x00, 0x01, 0x68, 0xce) // 3字节起始码
	stream = append(stream, Packetize(NalIDR, 3, []byte{0x88, 0x84})...)

	units := Split(stream)
	require.Len(t, units, 3)
	assert.Equal(t, NalSPS, Type(units[0]))
	assert.Equal(t, NalPPS, Type(units[1]))
	assert.Equal(t, NalIDR, Type(units[2]))
	assert.Equal(t, []byte{0x42, 0x00, 0x00, 0x00, 0x1f}, Unescape(units[0][1:]))
	assert.Equal(t, []byte{0x88, 0x84}, units[2][1:])
}

func TestSplitEmpty(t *testing.T) {
	assert.Empty(t, Split(nil))
	assert.Empty(t, Split([]byte{0x12, 0x34}))
}

func TestNalUnitTypeString(t *testing.T) {
	assert.Equal(t, "IDR", NalIDR.String())
	assert.Equal(t, "SLICE", NalSlice.String())
	assert.Equal(t, "UNKNOWN", NalUnitType(30).String())
}

func requireNoStartCodeEmulation(t *testing.T, ebsp []byte) {
	t.Helper()
	for i := 0; i+2 < len(ebsp); i++ {
		if ebsp[i] == 0 && ebsp[i+1] == 0 {
			require.Greater(t, ebsp[i+2], byte(0x02), "offset %d", i)
		}
	}
}
