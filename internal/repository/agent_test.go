package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fleetops/manager/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// AgentRepositoryTestSuite Repository 层测试套件
type AgentRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo AgentRepository
	ctx  context.Context
}

// SetupSuite 测试套件初始化
func (s *AgentRepositoryTestSuite) SetupSuite() {
	// 使用 SQLite 内存数据库
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(s.T(), err, "初始化数据库失败")

	// 自动迁移表结构
	err = db.AutoMigrate(&model.Agent{})
	require.NoError(s.T(), err, "迁移表结构失败")

	s.db = db
	s.repo = NewAgentRepository(db)
	s.ctx = context.Background()
}

// SetupTest 每个测试用例前的准备
func (s *AgentRepositoryTestSuite) SetupTest() {
	// 清空 agents 表
	s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Agent{})
}

// TearDownSuite 测试套件清理
func (s *AgentRepositoryTestSuite) TearDownSuite() {
	sqlDB, _ := s.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// createTestAgent 创建测试用的 Agent
func (s *AgentRepositoryTestSuite) createTestAgent(hostname, group, status string) *model.Agent {
	agent := &model.Agent{
		Hostname: hostname,
		AgentKey: "key-" + hostname,
		Group:    group,
		Status:   status,
	}
	if status != model.AgentStatusPending {
		now := time.Now()
		agent.LastHeartbeat = &now
	}
	return agent
}

// TestAgentRepository_Create 测试创建 Agent
func (s *AgentRepositoryTestSuite) TestAgentRepository_Create() {
	agent := s.createTestAgent("web-01", "web", model.AgentStatusPending)

	err := s.repo.Create(s.ctx, agent)
	require.NoError(s.T(), err, "创建 Agent 应该成功")
	assert.NotZero(s.T(), agent.ID, "Agent ID 应该被自动生成")
	assert.NotZero(s.T(), agent.CreatedAt, "CreatedAt 应该被自动设置")
}

// TestAgentRepository_Create_DuplicateHostname 测试主机名唯一约束
func (s *AgentRepositoryTestSuite) TestAgentRepository_Create_DuplicateHostname() {
	first := s.createTestAgent("web-01", "web", model.AgentStatusPending)
	err := s.repo.Create(s.ctx, first)
	require.NoError(s.T(), err)

	dup := &model.Agent{
		Hostname: "web-01",
		AgentKey: "another-key",
		Status:   model.AgentStatusPending,
	}
	err = s.repo.Create(s.ctx, dup)
	assert.Error(s.T(), err, "重复主机名应该触发唯一约束错误")
}

// TestAgentRepository_GetByHostname 测试根据主机名获取 Agent
func (s *AgentRepositoryTestSuite) TestAgentRepository_GetByHostname() {
	agent := s.createTestAgent("web-01", "web", model.AgentStatusApproved)
	err := s.repo.Create(s.ctx, agent)
	require.NoError(s.T(), err)

	result, err := s.repo.GetByHostname(s.ctx, "web-01")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), result, "应该返回 Agent")
	assert.Equal(s.T(), agent.ID, result.ID)
	assert.Equal(s.T(), "web", result.Group)
	assert.Equal(s.T(), model.AgentStatusApproved, result.Status)
}

// TestAgentRepository_GetByHostname_NotFound 测试获取不存在的 Agent
func (s *AgentRepositoryTestSuite) TestAgentRepository_GetByHostname_NotFound() {
	result, err := s.repo.GetByHostname(s.ctx, "no-such-host")
	require.NoError(s.T(), err, "获取不存在的 Agent 不应该返回错误")
	assert.Nil(s.T(), result, "应该返回 nil")
}

// TestAgentRepository_GetByAgentKey 测试根据密钥获取 Agent
func (s *AgentRepositoryTestSuite) TestAgentRepository_GetByAgentKey() {
	agent := s.createTestAgent("web-01", "web", model.AgentStatusApproved)
	err := s.repo.Create(s.ctx, agent)
	require.NoError(s.T(), err)

	result, err := s.repo.GetByAgentKey(s.ctx, "key-web-01")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), result, "应该返回 Agent")
	assert.Equal(s.T(), "web-01", result.Hostname)

	// 不存在的密钥
	result, err = s.repo.GetByAgentKey(s.ctx, "bogus-key")
	require.NoError(s.T(), err)
	assert.Nil(s.T(), result, "无效密钥应该返回 nil")
}

// TestAgentRepository_ListByGroup 测试按分组列举
func (s *AgentRepositoryTestSuite) TestAgentRepository_ListByGroup() {
	agents := []*model.Agent{
		s.createTestAgent("web-01", "web", model.AgentStatusApproved),
		s.createTestAgent("web-02", "web", model.AgentStatusApproved),
		s.createTestAgent("db-01", "db", model.AgentStatusApproved),
	}
	for _, agent := range agents {
		require.NoError(s.T(), s.repo.Create(s.ctx, agent))
	}

	result, err := s.repo.ListByGroup(s.ctx, "web")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, len(result), "应该返回 2 个 Agent")

	hostnames := make(map[string]bool)
	for _, agent := range result {
		assert.Equal(s.T(), "web", agent.Group)
		hostnames[agent.Hostname] = true
	}
	assert.True(s.T(), hostnames["web-01"], "应该包含 web-01")
	assert.True(s.T(), hostnames["web-02"], "应该包含 web-02")
}

// TestAgentRepository_ListByGroup_Empty 测试列举空分组
func (s *AgentRepositoryTestSuite) TestAgentRepository_ListByGroup_Empty() {
	result, err := s.repo.ListByGroup(s.ctx, "empty-group")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), result, "应该返回空列表")
}

// TestAgentRepository_ListByStatus 测试按状态列举
func (s *AgentRepositoryTestSuite) TestAgentRepository_ListByStatus() {
	agents := []*model.Agent{
		s.createTestAgent("web-01", "web", model.AgentStatusPending),
		s.createTestAgent("web-02", "web", model.AgentStatusApproved),
		s.createTestAgent("web-03", "web", model.AgentStatusPending),
	}
	for _, agent := range agents {
		require.NoError(s.T(), s.repo.Create(s.ctx, agent))
	}

	result, err := s.repo.ListByStatus(s.ctx, model.AgentStatusPending)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, len(result), "应该返回 2 个待审批 Agent")
}

// TestAgentRepository_List_Pagination 测试分页列举
func (s *AgentRepositoryTestSuite) TestAgentRepository_List_Pagination() {
	for i := 0; i < 5; i++ {
		agent := s.createTestAgent(fmt.Sprintf("host-%d", i), "web", model.AgentStatusApproved)
		require.NoError(s.T(), s.repo.Create(s.ctx, agent))
	}

	result, total, err := s.repo.List(s.ctx, 1, 2)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(5), total, "总数应该是 5")
	assert.Equal(s.T(), 2, len(result), "第一页应该返回 2 条")

	result, total, err = s.repo.List(s.ctx, 3, 2)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(5), total)
	assert.Equal(s.T(), 1, len(result), "最后一页应该返回 1 条")
}

// TestAgentRepository_ListStale 测试列举心跳过期的 Agent
func (s *AgentRepositoryTestSuite) TestAgentRepository_ListStale() {
	now := time.Now()
	old := now.Add(-10 * time.Minute)

	// 心跳过期的 Agent
	stale := s.createTestAgent("stale-01", "web", model.AgentStatusApproved)
	stale.LastHeartbeat = &old
	require.NoError(s.T(), s.repo.Create(s.ctx, stale))

	// 心跳正常的 Agent
	fresh := s.createTestAgent("fresh-01", "web", model.AgentStatusApproved)
	require.NoError(s.T(), s.repo.Create(s.ctx, fresh))

	// 已标记离线的 Agent 不应该重复出现
	offline := s.createTestAgent("offline-01", "web", model.AgentStatusOffline)
	offline.LastHeartbeat = &old
	require.NoError(s.T(), s.repo.Create(s.ctx, offline))

	// 从未心跳的待审批 Agent 不应该出现
	pending := s.createTestAgent("pending-01", "web", model.AgentStatusPending)
	require.NoError(s.T(), s.repo.Create(s.ctx, pending))

	cutoff := now.Add(-5 * time.Minute)
	result, err := s.repo.ListStale(s.ctx, cutoff)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1, len(result), "应该只返回 1 个过期 Agent")
	assert.Equal(s.T(), "stale-01", result[0].Hostname)
}

// TestAgentRepository_UpdateStatusBulk 测试批量更新状态
func (s *AgentRepositoryTestSuite) TestAgentRepository_UpdateStatusBulk() {
	var ids []uint
	for i := 0; i < 3; i++ {
		agent := s.createTestAgent(fmt.Sprintf("host-%d", i), "web", model.AgentStatusApproved)
		require.NoError(s.T(), s.repo.Create(s.ctx, agent))
		ids = append(ids, agent.ID)
	}

	// 只更新前两个
	err := s.repo.UpdateStatusBulk(s.ctx, ids[:2], model.AgentStatusOffline)
	require.NoError(s.T(), err)

	offline, err := s.repo.ListByStatus(s.ctx, model.AgentStatusOffline)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, len(offline), "应该有 2 个 Agent 被标记离线")

	// 空ID列表是空操作
	err = s.repo.UpdateStatusBulk(s.ctx, nil, model.AgentStatusOffline)
	require.NoError(s.T(), err, "空ID列表不应该报错")
}

// TestAgentRepository_Update 测试更新 Agent
func (s *AgentRepositoryTestSuite) TestAgentRepository_Update() {
	agent := s.createTestAgent("web-01", "web", model.AgentStatusPending)
	require.NoError(s.T(), s.repo.Create(s.ctx, agent))

	now := time.Now()
	agent.Status = model.AgentStatusApproved
	agent.Group = "frontend"
	agent.LastHeartbeat = &now
	require.NoError(s.T(), s.repo.Update(s.ctx, agent))

	result, err := s.repo.GetByID(s.ctx, agent.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), result)
	assert.Equal(s.T(), model.AgentStatusApproved, result.Status)
	assert.Equal(s.T(), "frontend", result.Group)
	require.NotNil(s.T(), result.LastHeartbeat, "心跳时间应该被保存")
}

// TestAgentRepository_Delete 测试删除 Agent
func (s *AgentRepositoryTestSuite) TestAgentRepository_Delete() {
	agent := s.createTestAgent("web-01", "web", model.AgentStatusApproved)
	require.NoError(s.T(), s.repo.Create(s.ctx, agent))

	require.NoError(s.T(), s.repo.Delete(s.ctx, agent.ID))

	result, err := s.repo.GetByID(s.ctx, agent.ID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), result, "删除后应该查询不到数据")

	// 主机名释放后可以重新注册
	reborn := s.createTestAgent("web-01", "web", model.AgentStatusPending)
	reborn.AgentKey = "key-web-01-new"
	assert.NoError(s.T(), s.repo.Create(s.ctx, reborn), "删除后应该允许重用主机名")
}

// TestAgentRepository_ConcurrentCreate 测试并发创建 Agent
func (s *AgentRepositoryTestSuite) TestAgentRepository_ConcurrentCreate() {
	const numGoroutines = 10
	var wg sync.WaitGroup
	errors := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			agent := s.createTestAgent(fmt.Sprintf("host-%d", id), "web", model.AgentStatusApproved)
			if err := s.repo.Create(s.ctx, agent); err != nil {
				errors <- err
			}
		}(i)
	}

	wg.Wait()
	close(errors)

	for err := range errors {
		s.T().Errorf("并发创建失败: %v", err)
	}

	result, err := s.repo.ListAll(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), numGoroutines, len(result), "应该创建 %d 个 Agent", numGoroutines)
}

// TestAgentRepository 运行测试套件
func TestAgentRepository(t *testing.T) {
	suite.Run(t, new(AgentRepositoryTestSuite))
}
