package xlease

import (
	"context"
	"time"
)

// SetClock 替换 Registry 的时钟，用于确定性地模拟租约过期。
func (r *Registry) SetClock(now func() time.Duration) {
	r.now = now
}

// Release 暴露内部释放流程。
func (e *Executor) Release(ctx context.Context, key, owner string) bool {
	return e.release(ctx, key, owner)
}
