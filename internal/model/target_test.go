package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseTarget 测试目标解析
func TestParseTarget(t *testing.T) {
	target, err := ParseTarget("host", "web-01")
	require.NoError(t, err)
	assert.Equal(t, TargetHost, target.Type)
	assert.Equal(t, "web-01", target.Value)

	target, err = ParseTarget("group", "web")
	require.NoError(t, err)
	assert.Equal(t, TargetGroup, target.Type)

	target, err = ParseTarget("all", "")
	require.NoError(t, err)
	assert.Equal(t, TargetAll, target.Type)
	assert.Empty(t, target.Value)
}

// TestParseTarget_Invalid 测试非法目标被拒绝
func TestParseTarget_Invalid(t *testing.T) {
	_, err := ParseTarget("host", "")
	assert.Error(t, err, "host 目标必须携带主机名")

	_, err = ParseTarget("group", "")
	assert.Error(t, err, "group 目标必须携带分组名")

	_, err = ParseTarget("all", "web-01")
	assert.Error(t, err, "all 目标不应该携带值")

	_, err = ParseTarget("bogus", "x")
	assert.Error(t, err, "未知目标类型应该被拒绝")
}

// TestTargetString 测试目标的可读形式
func TestTargetString(t *testing.T) {
	target, _ := HostTarget("web-01")
	assert.Equal(t, "host:web-01", target.String())

	target, _ = GroupTarget("web")
	assert.Equal(t, "group:web", target.String())

	assert.Equal(t, "all", AllTarget().String())
}

// TestScheduledCommandWindow 测试执行窗口判定
func TestScheduledCommandWindow(t *testing.T) {
	now := time.Now()
	tolerance := 2 * time.Minute

	inWindow := &ScheduledCommand{ScheduledFor: now.Add(-time.Minute)}
	assert.True(t, inWindow.IsDue(now, tolerance), "窗口内应该判定为到期")
	assert.False(t, inWindow.IsExpired(now, tolerance))

	early := &ScheduledCommand{ScheduledFor: now.Add(time.Minute)}
	assert.True(t, early.IsDue(now, tolerance), "提前量在容忍范围内也算到期")

	future := &ScheduledCommand{ScheduledFor: now.Add(time.Hour)}
	assert.False(t, future.IsDue(now, tolerance))
	assert.False(t, future.IsExpired(now, tolerance))

	expired := &ScheduledCommand{ScheduledFor: now.Add(-time.Hour)}
	assert.False(t, expired.IsDue(now, tolerance))
	assert.True(t, expired.IsExpired(now, tolerance), "超窗应该判定为过期")
}
