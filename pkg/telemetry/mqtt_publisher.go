package telemetry

import (
	"fmt"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/stydxm/gopsched/pkg/stream"
)

// TopicPrefix 所有主题的前缀
const TopicPrefix = "gopsched"

func PictureTopic(sessionID string) string {
	return fmt.Sprintf("%s/%s/picture", TopicPrefix, sessionID)
}

func HeadersTopic(sessionID string) string {
	return fmt.Sprintf("%s/%s/headers", TopicPrefix, sessionID)
}

// Publisher 通过内联客户端发布每帧的编码状态
type Publisher struct {
	server *mqtt.Server
}

func NewPublisher(server *mqtt.Server) *Publisher {
	return &Publisher{server: server}
}

// PictureStatus 把编码结果转换为protobuf Struct
func PictureStatus(ep *stream.EncodedPicture) (*structpb.Struct, error) {
	refs := make([]interface{}, 0, len(ep.Header.RefPicList0))
	for _, r := range ep.Header.RefPicList0 {
		refs = append(refs, int64(r.Picture.FrameNum))
	}
	return structpb.NewStruct(map[string]interface{}{
		"frame_type":    ep.Picture.Type.String(),
		"display_order": int64(ep.Picture.DisplayOrder),
		"frame_num":     int64(ep.Picture.FrameNum),
		"poc_lsb":       int64(ep.Picture.PocLsb),
		"idr_pic_id":    int64(ep.Header.IDRPicID),
		"ref_list0":     refs,
		"pool_size":     int64(ep.PoolSize),
		"bytes":         int64(len(ep.Data)),
	})
}

// ObservePicture 实现stream.Observer
func (p *Publisher) ObservePicture(sessionID string, ep *stream.EncodedPicture) {
	status, err := PictureStatus(ep)
	if err != nil {
		logrus.Warnf("构造帧状态失败: %v", err)
		return
	}
	out, err := proto.Marshal(status)
	if err != nil {
		logrus.Warnf("pb序列化失败: %v", err)
		return
	}
	if err := p.server.Publish(PictureTopic(sessionID), out, false, 0); err != nil {
		logrus.Warnf("发布帧状态失败: %v", err)
	}
}

// PublishHeaders 以保留消息发布SPS/PPS，后加入的订阅者也能开始解码
func (p *Publisher) PublishHeaders(sessionID string, headers []byte) error {
	return p.server.Publish(HeadersTopic(sessionID), headers, true, 0)
}
