package constants

// StoppedReasonType 程序停止类型
type StoppedReasonType string

const (
	BreakpointStopped StoppedReasonType = "breakpoint"
	StepStopped       StoppedReasonType = "step"
)

// StepType 单步调试类型
type StepType string

const (
	StepIn   StepType = "stepIn"
	StepOut  StepType = "stepOut"
	StepOver StepType = "stepOver"
)

// DepthOffset 单步执行时暂停的最大深度相对当前深度的偏移
func (s StepType) DepthOffset() int {
	switch s {
	case StepIn:
		return 1
	case StepOut:
		return -1
	}
	return 0
}

// ScopeName 作用域名称
type ScopeName string

// ScopeScores 执行者实体的记分板分数
const ScopeScores ScopeName = "Scores"

// OutputCategory 输出事件的类型
const (
	OutputConsole = "console"
	OutputStderr  = "stderr"
)

// ThreadID 服务器只有一个线程
const ThreadID = 1

// ThreadName 线程名称
const ThreadName = "Server"
