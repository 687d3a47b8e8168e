package service

import "sync"

// CancelController 每个会话最多持有一个在途流的取消句柄
// Cancel 从调用方视角同步生效，底层传输的拆除可以是异步的
// 句柄按流代数登记，旧流收尾时不会误清新一代的句柄
type CancelController struct {
	mu     sync.Mutex
	gen    int
	cancel func()
}

// Set 登记指定代的取消函数，覆盖旧句柄
func (c *CancelController) Set(gen int, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen = gen
	c.cancel = fn
}

// Cancel 取消在途流，无在途流或重复调用均为空操作
func (c *CancelController) Cancel() {
	c.mu.Lock()
	fn := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// ClearIf 流结束后释放句柄，仅当句柄仍属于该代时生效
// 旧流的连接可能在新一代提交之后才关闭，无条件清理会把新句柄一并抹掉
func (c *CancelController) ClearIf(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.cancel = nil
	}
}
