package dpb

import (
	"fmt"

	"github.com/stydxm/gopsched/pkg/gop"
)

// SurfaceID 重建图像表面的不透明句柄，由硬件提交层分配
type SurfaceID uint32

// Entry 参考帧池中的一项
type Entry struct {
	Picture gop.Picture
	Surface SurfaceID
}

// Pool 有界参考帧池，按插入顺序保存，溢出时淘汰最早插入的项
type Pool struct {
	capacity int
	entries  []Entry
}

// NewPool 创建容量为capacity的参考帧池
func NewPool(capacity uint32) *Pool {
	return &Pool{
		capacity: int(capacity),
		entries:  make([]Entry, 0, capacity+1),
	}
}

// Add 插入新的参考帧
func (p *Pool) Add(pic gop.Picture, surface SurfaceID) error {
	if !pic.IsReference {
		return fmt.Errorf("%w: 非参考帧不能加入参考帧池 (frame_num=%d)", gop.ErrInternalConsistency, pic.FrameNum)
	}
	p.entries = append(p.entries, Entry{Picture: pic, Surface: surface})
	return nil
}

// Clear 清空池并返回被移除的项，IDR之后调用
func (p *Pool) Clear() []Entry {
	removed := p.entries
	p.entries = make([]Entry, 0, p.capacity+1)
	return removed
}

// EvictIfOverCapacity 淘汰最早插入的项直到不超过容量
func (p *Pool) EvictIfOverCapacity() []Entry {
	over := len(p.entries) - p.capacity
	if over <= 0 {
		return nil
	}
	evicted := make([]Entry, over)
	copy(evicted, p.entries[:over])
	p.entries = append(p.entries[:0], p.entries[over:]...)
	return evicted
}

// Entries 按插入顺序返回当前所有项的拷贝
func (p *Pool) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *Pool) Len() int {
	return len(p.entries)
}

func (p *Pool) Capacity() int {
	return p.capacity
}
