package service

import (
	"context"
	"testing"
	"time"

	"github.com/fleetops/manager/internal/model"
	"github.com/fleetops/manager/internal/queue"
	"github.com/fleetops/manager/internal/repository"
	pkgerrors "github.com/fleetops/manager/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// AgentServiceTestSuite 主机管理服务测试套件
type AgentServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	repo     repository.AgentRepository
	commands *queue.CommandQueue
	service  *AgentService
	ctx      context.Context
}

// SetupSuite 测试套件初始化
func (s *AgentServiceTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(s.T(), err, "初始化数据库失败")

	err = db.AutoMigrate(&model.Agent{})
	require.NoError(s.T(), err, "迁移表结构失败")

	s.db = db
	s.ctx = context.Background()
}

// SetupTest 每个测试用例前重建依赖
func (s *AgentServiceTestSuite) SetupTest() {
	s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Agent{})
	s.repo = repository.NewAgentRepository(s.db)
	s.commands = queue.NewCommandQueue()
	s.service = NewAgentService(s.repo, s.commands, zap.NewNop())
}

// TearDownSuite 测试套件清理
func (s *AgentServiceTestSuite) TearDownSuite() {
	sqlDB, _ := s.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// TestRegister 测试主机注册
func (s *AgentServiceTestSuite) TestRegister() {
	agent, err := s.service.Register(s.ctx, "web-01", "web")
	require.NoError(s.T(), err, "注册应该成功")
	require.NotNil(s.T(), agent)

	assert.Equal(s.T(), "web-01", agent.Hostname)
	assert.Equal(s.T(), "web", agent.Group)
	assert.Equal(s.T(), model.AgentStatusPending, agent.Status, "新主机应该是待审批状态")
	assert.NotEmpty(s.T(), agent.AgentKey, "应该生成主机密钥")
	assert.Nil(s.T(), agent.LastHeartbeat, "注册时不应该有心跳时间")
}

// TestRegister_DuplicateHostname 测试重复注册
func (s *AgentServiceTestSuite) TestRegister_DuplicateHostname() {
	_, err := s.service.Register(s.ctx, "web-01", "web")
	require.NoError(s.T(), err)

	_, err = s.service.Register(s.ctx, "web-01", "other")
	require.Error(s.T(), err, "重复主机名应该返回冲突错误")
	assert.Equal(s.T(), pkgerrors.ErrHostnameTakenMsg, err)
}

// TestRegister_EmptyHostname 测试空主机名
func (s *AgentServiceTestSuite) TestRegister_EmptyHostname() {
	_, err := s.service.Register(s.ctx, "", "web")
	require.Error(s.T(), err, "空主机名应该被拒绝")
}

// TestHeartbeat_InvalidKey 测试无效密钥心跳
func (s *AgentServiceTestSuite) TestHeartbeat_InvalidKey() {
	_, err := s.service.Heartbeat(s.ctx, "bogus-key", "", "")
	require.Error(s.T(), err)
	assert.Equal(s.T(), pkgerrors.ErrInvalidAgentKeyMsg, err, "无效密钥应该返回认证错误")
}

// TestHeartbeat_PendingRejected 测试待审批主机心跳被拒绝
func (s *AgentServiceTestSuite) TestHeartbeat_PendingRejected() {
	agent, err := s.service.Register(s.ctx, "web-01", "web")
	require.NoError(s.T(), err)

	_, err = s.service.Heartbeat(s.ctx, agent.AgentKey, "", "")
	require.Error(s.T(), err)
	assert.Equal(s.T(), pkgerrors.ErrAgentNotApprovedMsg, err, "待审批主机心跳应该被拒绝")

	// 被拒绝的心跳不应该更新存活时间
	stored, err := s.repo.GetByID(s.ctx, agent.ID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), stored.LastHeartbeat, "被拒绝的心跳不应该刷新存活时间")
}

// TestHeartbeat_UpdatesLiveness 测试心跳刷新存活状态
func (s *AgentServiceTestSuite) TestHeartbeat_UpdatesLiveness() {
	agent := s.registerApproved("web-01", "web")

	before := time.Now()
	resp, err := s.service.Heartbeat(s.ctx, agent.AgentKey, "", "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), HeartbeatAck, resp, "没有待执行命令时应该返回应答")

	stored, err := s.repo.GetByID(s.ctx, agent.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), stored.LastHeartbeat, "心跳应该刷新存活时间")
	assert.False(s.T(), stored.LastHeartbeat.Before(before.Add(-time.Second)), "存活时间应该是最近的")
}

// TestHeartbeat_RecoversOffline 测试离线主机心跳后恢复
func (s *AgentServiceTestSuite) TestHeartbeat_RecoversOffline() {
	agent := s.registerApproved("web-01", "web")

	agent.Status = model.AgentStatusOffline
	require.NoError(s.T(), s.repo.Update(s.ctx, agent))

	_, err := s.service.Heartbeat(s.ctx, agent.AgentKey, "", "")
	require.NoError(s.T(), err)

	stored, err := s.repo.GetByID(s.ctx, agent.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.AgentStatusApproved, stored.Status, "离线主机心跳后应该恢复为已审批")
}

// TestHeartbeat_StoresReportedStatus 测试心跳记录主机上报的运行状态
func (s *AgentServiceTestSuite) TestHeartbeat_StoresReportedStatus() {
	agent := s.registerApproved("web-01", "web")

	_, err := s.service.Heartbeat(s.ctx, agent.AgentKey, "busy", "")
	require.NoError(s.T(), err)

	stored, err := s.repo.GetByID(s.ctx, agent.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "busy", stored.Status, "上报的运行状态应该被保存")

	// 未上报状态时落回已审批
	_, err = s.service.Heartbeat(s.ctx, agent.AgentKey, "", "")
	require.NoError(s.T(), err)

	stored, err = s.repo.GetByID(s.ctx, agent.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.AgentStatusApproved, stored.Status, "未上报状态时应该落回已审批")
}

// TestHeartbeat_GroupChange 测试心跳携带分组变更
func (s *AgentServiceTestSuite) TestHeartbeat_GroupChange() {
	agent := s.registerApproved("web-01", "web")

	_, err := s.service.Heartbeat(s.ctx, agent.AgentKey, "", "frontend")
	require.NoError(s.T(), err)

	stored, err := s.repo.GetByID(s.ctx, agent.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "frontend", stored.Group, "分组应该随心跳更新")

	// 空分组不覆盖已有分组
	_, err = s.service.Heartbeat(s.ctx, agent.AgentKey, "", "")
	require.NoError(s.T(), err)

	stored, err = s.repo.GetByID(s.ctx, agent.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "frontend", stored.Group, "空分组不应该覆盖已有分组")
}

// TestHeartbeat_DeliversCommand 测试心跳取走待执行命令
func (s *AgentServiceTestSuite) TestHeartbeat_DeliversCommand() {
	agent := s.registerApproved("web-01", "web")

	s.commands.Enqueue("web-01", "systemctl restart nginx")

	resp, err := s.service.Heartbeat(s.ctx, agent.AgentKey, "", "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "systemctl restart nginx", resp, "第一次心跳应该拿到命令")

	// 命令只投递一次
	resp, err = s.service.Heartbeat(s.ctx, agent.AgentKey, "", "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), HeartbeatAck, resp, "第二次心跳应该返回应答")
}

// TestApprove 测试审批主机
func (s *AgentServiceTestSuite) TestApprove() {
	agent, err := s.service.Register(s.ctx, "web-01", "web")
	require.NoError(s.T(), err)

	approved, err := s.service.Approve(s.ctx, agent.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.AgentStatusApproved, approved.Status)
	require.NotNil(s.T(), approved.LastHeartbeat, "审批时应该写入存活基准时间")

	// 重复审批是幂等操作
	again, err := s.service.Approve(s.ctx, agent.ID)
	require.NoError(s.T(), err, "重复审批不应该报错")
	assert.Equal(s.T(), model.AgentStatusApproved, again.Status)
}

// TestApprove_SilentAgentGetsSwept 测试审批后一直沉默的主机会被离线扫描命中
func (s *AgentServiceTestSuite) TestApprove_SilentAgentGetsSwept() {
	agent, err := s.service.Register(s.ctx, "web-01", "web")
	require.NoError(s.T(), err)
	_, err = s.service.Approve(s.ctx, agent.ID)
	require.NoError(s.T(), err)

	// 审批后从未心跳，存活基准回拨到窗口之外
	stored, err := s.repo.GetByID(s.ctx, agent.ID)
	require.NoError(s.T(), err)
	old := time.Now().Add(-10 * time.Minute)
	stored.LastHeartbeat = &old
	require.NoError(s.T(), s.repo.Update(s.ctx, stored))

	sweeper := NewOfflineSweeper(s.repo, 5*time.Minute, zap.NewNop())
	require.NoError(s.T(), sweeper.Sweep(s.ctx))

	stored, err = s.repo.GetByID(s.ctx, agent.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.AgentStatusOffline, stored.Status, "沉默主机应该被标记离线")
}

// TestApprove_NotFound 测试审批不存在的主机
func (s *AgentServiceTestSuite) TestApprove_NotFound() {
	_, err := s.service.Approve(s.ctx, 99999)
	require.Error(s.T(), err)
	assert.Equal(s.T(), pkgerrors.ErrAgentNotFoundMsg, err)
}

// TestApprove_DoesNotDowngradeOffline 测试审批不会把离线主机降级
func (s *AgentServiceTestSuite) TestApprove_DoesNotDowngradeOffline() {
	agent := s.registerApproved("web-01", "web")
	agent.Status = model.AgentStatusOffline
	require.NoError(s.T(), s.repo.Update(s.ctx, agent))

	result, err := s.service.Approve(s.ctx, agent.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.AgentStatusOffline, result.Status, "审批只作用于待审批主机")
}

// TestListPending 测试获取待审批列表
func (s *AgentServiceTestSuite) TestListPending() {
	_, err := s.service.Register(s.ctx, "web-01", "web")
	require.NoError(s.T(), err)
	s.registerApproved("web-02", "web")

	pending, err := s.service.ListPending(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1, len(pending))
	assert.Equal(s.T(), "web-01", pending[0].Hostname)
}

// TestDelete 测试删除主机并清除残留命令
func (s *AgentServiceTestSuite) TestDelete() {
	agent := s.registerApproved("web-01", "web")
	s.commands.Enqueue("web-01", "reboot")

	err := s.service.Delete(s.ctx, agent.ID)
	require.NoError(s.T(), err)

	_, err = s.service.GetByID(s.ctx, agent.ID)
	assert.Equal(s.T(), pkgerrors.ErrAgentNotFoundMsg, err, "删除后应该查询不到主机")

	_, ok := s.commands.Peek("web-01")
	assert.False(s.T(), ok, "删除主机应该一并清除待执行命令")
}

// registerApproved 注册并审批通过一台主机
func (s *AgentServiceTestSuite) registerApproved(hostname, group string) *model.Agent {
	agent, err := s.service.Register(s.ctx, hostname, group)
	require.NoError(s.T(), err)
	agent, err = s.service.Approve(s.ctx, agent.ID)
	require.NoError(s.T(), err)
	return agent
}

// TestAgentService 运行测试套件
func TestAgentService(t *testing.T) {
	suite.Run(t, new(AgentServiceTestSuite))
}
