package dpb

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/stydxm/gopsched/pkg/gop"
)

// RefPic list0中的一项
type RefPic struct {
	Entry
	PicNum int64
}

// PicNum 计算参考帧相对当前帧的PicNum，frame_num回绕后的旧帧得到负值
func PicNum(frameNum, currentFrameNum, maxFrameNum uint32) int64 {
	if frameNum <= currentFrameNum {
		return int64(frameNum)
	}
	return int64(frameNum) - int64(maxFrameNum)
}

// BuildList0 按PicNum降序构造P帧的默认前向参考列表
func BuildList0(pool *Pool, currentFrameNum, maxFrameNum uint32) ([]RefPic, error) {
	if pool.Len() == 0 {
		return nil, fmt.Errorf("%w: 参考帧池为空，无法构造list0 (frame_num=%d)", gop.ErrInternalConsistency, currentFrameNum)
	}

	list := lo.Map(pool.Entries(), func(e Entry, _ int) RefPic {
		return RefPic{Entry: e, PicNum: PicNum(e.Picture.FrameNum, currentFrameNum, maxFrameNum)}
	})

	if dup := lo.FindDuplicatesBy(list, func(r RefPic) int64 { return r.PicNum }); len(dup) > 0 {
		return nil, fmt.Errorf("%w: list0中PicNum重复 (PicNum=%d, frame_num=%d)",
			gop.ErrInternalConsistency, dup[0].PicNum, currentFrameNum)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].PicNum > list[j].PicNum
	})
	return list, nil
}
