// Package queue 提供进程内的命令队列
//
// 每台主机最多保留一条待执行命令，新命令会覆盖旧命令。
// 命令通过心跳下发，取出即删除，保证同一条命令只下发一次。
// 队列状态不落库，进程重启后清空。
package queue

import "sync"

// CommandQueue 主机命令队列
type CommandQueue struct {
	commands sync.Map // hostname -> command
}

// NewCommandQueue 创建命令队列实例
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{}
}

// Enqueue 为指定主机入队命令，覆盖尚未下发的旧命令
func (q *CommandQueue) Enqueue(hostname, command string) {
	q.commands.Store(hostname, command)
}

// TakeAndClear 取出并清除指定主机的待执行命令
// 没有待执行命令时返回空串和 false
func (q *CommandQueue) TakeAndClear(hostname string) (string, bool) {
	value, ok := q.commands.LoadAndDelete(hostname)
	if !ok {
		return "", false
	}
	return value.(string), true
}

// Peek 查看指定主机的待执行命令，不清除
func (q *CommandQueue) Peek(hostname string) (string, bool) {
	value, ok := q.commands.Load(hostname)
	if !ok {
		return "", false
	}
	return value.(string), true
}

// Len 返回当前有待执行命令的主机数量
func (q *CommandQueue) Len() int {
	count := 0
	q.commands.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
