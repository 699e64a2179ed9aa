package queue

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCommandQueue_EnqueueAndTake 测试基本的入队和取出
func TestCommandQueue_EnqueueAndTake(t *testing.T) {
	q := NewCommandQueue()

	q.Enqueue("web-01", "systemctl restart nginx")

	cmd, ok := q.TakeAndClear("web-01")
	assert.True(t, ok, "应该取到命令")
	assert.Equal(t, "systemctl restart nginx", cmd)

	// 取出即清除，第二次取不到
	cmd, ok = q.TakeAndClear("web-01")
	assert.False(t, ok, "命令取出后应该被清除")
	assert.Empty(t, cmd)
}

// TestCommandQueue_TakeEmpty 测试取出不存在的命令
func TestCommandQueue_TakeEmpty(t *testing.T) {
	q := NewCommandQueue()

	cmd, ok := q.TakeAndClear("unknown-host")
	assert.False(t, ok, "没有入队过的主机不应该取到命令")
	assert.Empty(t, cmd)
}

// TestCommandQueue_Overwrite 测试同一主机新命令覆盖旧命令
func TestCommandQueue_Overwrite(t *testing.T) {
	q := NewCommandQueue()

	q.Enqueue("web-01", "uptime")
	q.Enqueue("web-01", "reboot")

	cmd, ok := q.TakeAndClear("web-01")
	assert.True(t, ok)
	assert.Equal(t, "reboot", cmd, "新命令应该覆盖旧命令")

	_, ok = q.TakeAndClear("web-01")
	assert.False(t, ok, "覆盖后队列中应该只有一条命令")
}

// TestCommandQueue_Peek 测试查看命令不清除
func TestCommandQueue_Peek(t *testing.T) {
	q := NewCommandQueue()

	q.Enqueue("web-01", "uptime")

	cmd, ok := q.Peek("web-01")
	assert.True(t, ok)
	assert.Equal(t, "uptime", cmd)

	// Peek不清除命令
	cmd, ok = q.TakeAndClear("web-01")
	assert.True(t, ok, "Peek后命令应该仍然存在")
	assert.Equal(t, "uptime", cmd)
}

// TestCommandQueue_IsolatedPerHost 测试不同主机的命令互不影响
func TestCommandQueue_IsolatedPerHost(t *testing.T) {
	q := NewCommandQueue()

	q.Enqueue("web-01", "cmd-a")
	q.Enqueue("web-02", "cmd-b")
	assert.Equal(t, 2, q.Len())

	cmd, ok := q.TakeAndClear("web-01")
	assert.True(t, ok)
	assert.Equal(t, "cmd-a", cmd)

	// web-02的命令不受影响
	cmd, ok = q.TakeAndClear("web-02")
	assert.True(t, ok)
	assert.Equal(t, "cmd-b", cmd)
	assert.Equal(t, 0, q.Len())
}

// TestCommandQueue_ConcurrentTake 测试并发取出时命令只被送达一次
func TestCommandQueue_ConcurrentTake(t *testing.T) {
	q := NewCommandQueue()
	q.Enqueue("web-01", "one-shot")

	const numGoroutines = 20
	var wg sync.WaitGroup
	delivered := make(chan string, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cmd, ok := q.TakeAndClear("web-01"); ok {
				delivered <- cmd
			}
		}()
	}

	wg.Wait()
	close(delivered)

	count := 0
	for cmd := range delivered {
		assert.Equal(t, "one-shot", cmd)
		count++
	}
	assert.Equal(t, 1, count, "并发取出时命令应该只被送达一次")
}

// TestCommandQueue_ConcurrentEnqueue 测试并发入队不丢命令
func TestCommandQueue_ConcurrentEnqueue(t *testing.T) {
	q := NewCommandQueue()

	const numHosts = 50
	var wg sync.WaitGroup

	for i := 0; i < numHosts; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.Enqueue(fmt.Sprintf("host-%d", id), fmt.Sprintf("cmd-%d", id))
		}(i)
	}

	wg.Wait()
	assert.Equal(t, numHosts, q.Len(), "每台主机都应该有一条待执行命令")

	for i := 0; i < numHosts; i++ {
		cmd, ok := q.TakeAndClear(fmt.Sprintf("host-%d", i))
		assert.True(t, ok, "host-%d 应该有命令", i)
		assert.Equal(t, fmt.Sprintf("cmd-%d", i), cmd)
	}
}
