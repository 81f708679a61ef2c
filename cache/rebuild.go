package cache

import (
	"sync"
)

// rebuildPool 固定大小的异步重建工作池
//
// 队列有界，提交失败由调用方降级处理（返回旧值并释放重建锁）。
type rebuildPool struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newRebuildPool(workers, queueSize int) *rebuildPool {
	p := &rebuildPool{
		tasks: make(chan func(), queueSize),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// submit 提交任务，池已关闭或队列已满时返回 false
func (p *rebuildPool) submit(task func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// close 停止接收新任务并等待已提交任务执行完毕
func (p *rebuildPool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}
