package progress

import (
	"sync"
	"sync/atomic"
)

// Stream 基于 channel 的快照流。生产者通过 Sink 非阻塞推送，
// 缓冲区满时丢弃最旧的快照并计数，最新快照（包括终态）总会送达，
// 已送达的快照保持产生顺序。
type Stream struct {
	mu      sync.Mutex
	ch      chan Snapshot
	closed  bool
	dropped atomic.Int64
}

// NewStream 创建带缓冲的快照流，buffer 小于 1 时按 1 处理
func NewStream(buffer int) *Stream {
	if buffer < 1 {
		buffer = 1
	}
	return &Stream{ch: make(chan Snapshot, buffer)}
}

// C 消费端 channel
func (s *Stream) C() <-chan Snapshot {
	return s.ch
}

// Sink 返回推送到该流的 Sink
func (s *Stream) Sink() Sink {
	return func(snap Snapshot) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		for {
			select {
			case s.ch <- snap:
				return
			default:
			}
			// 满了：腾出最旧的一个位置
			select {
			case <-s.ch:
				s.dropped.Add(1)
			default:
			}
		}
	}
}

// Dropped 因缓冲区满而丢弃的快照数
func (s *Stream) Dropped() int64 {
	return s.dropped.Load()
}

// Close 关闭 channel，之后推送的快照被忽略
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
