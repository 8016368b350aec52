package utils

import "sync"

// Status 调试会话的状态
type Status string

const (
	// Uninitialized 还没有收到initialize请求
	Uninitialized Status = "uninitialized"
	// Initialized 已经初始化，等待launch
	Initialized Status = "initialized"
	// Launched 数据包已经安装，还没有暂停过
	Launched Status = "launched"
	// Stopped 用户程序暂停
	Stopped Status = "stopped"
	// Running 用户程序运行中
	Running Status = "running"
	// Terminated 调试结束状态
	Terminated Status = "terminated"
)

// StatusManager 记录调试器的状态的
type StatusManager struct {
	lock   sync.RWMutex
	status Status
}

func NewStatusManager() *StatusManager {
	return &StatusManager{
		status: Uninitialized,
	}
}

func (s *StatusManager) Set(status Status) {
	defer s.lock.Unlock()
	s.lock.Lock()
	s.status = status
}

// Get 返回当前状态
func (s *StatusManager) Get() Status {
	defer s.lock.RUnlock()
	s.lock.RLock()
	return s.status
}

func (s *StatusManager) Is(statusList ...Status) bool {
	defer s.lock.RUnlock()
	s.lock.RLock()
	for _, status := range statusList {
		if s.status == status {
			return true
		}
	}
	return false
}

// Transfer 当前状态在from中时切换到to，返回是否切换成功
func (s *StatusManager) Transfer(to Status, from ...Status) bool {
	defer s.lock.Unlock()
	s.lock.Lock()
	for _, status := range from {
		if s.status == status {
			s.status = to
			return true
		}
	}
	return false
}
