package stream

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/sirupsen/logrus"
)

// MaxSliceSize UDP包推荐的最大负载，留出头部空间
const MaxSliceSize = 1000

const packetHeaderSize = 8

func GetUDPConn(address string) *net.UDPConn {
	serverAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		logrus.Fatalf("无法解析服务器地址: %v", err)
	}

	conn, err := net.DialUDP("udp", nil, serverAddr)
	if err != nil {
		logrus.Fatalf("无法连接到UDP服务器: %v", err)
	}
	return conn
}

// PacketFactory 按 frameID(2) | sliceID(2) | size(4) 小端格式封装一个切片
func PacketFactory(frameID, sliceID uint16, sliceData []byte) []byte {
	packet := make([]byte, packetHeaderSize+len(sliceData))
	sliceSize := uint32(len(sliceData))

	binary.LittleEndian.PutUint16(packet[0:2], frameID)
	binary.LittleEndian.PutUint16(packet[2:4], sliceID)
	binary.LittleEndian.PutUint32(packet[4:8], sliceSize)
	copy(packet[packetHeaderSize:], sliceData)

	return packet
}

// SendPacket 把一个访问单元切成多个UDP包发送，返回发送成功的包数
func SendPacket(conn io.Writer, encodedData []byte, frameID uint16) int {
	// 计算需要多少个切片
	totalSlices := (len(encodedData) + MaxSliceSize - 1) / MaxSliceSize

	sent := 0
	for sliceID := 0; sliceID < totalSlices; sliceID++ {
		start := sliceID * MaxSliceSize
		end := min(start+MaxSliceSize, len(encodedData))

		packet := PacketFactory(frameID, uint16(sliceID), encodedData[start:end])
		if _, err := conn.Write(packet); err != nil {
			logrus.Errorf("发送切片失败: %v", err)
			continue
		}
		sent++
		logrus.Debugf("发送切片%d", sliceID)
	}
	return sent
}
