package entity

// Stage 向导阶段
type Stage string

const (
	StageStyle    Stage = "style"
	StageCreate   Stage = "create"
	StageInteract Stage = "interact"
	StageLibrary  Stage = "library"
)

// Stages 按顺序排列的全部阶段
var Stages = []Stage{StageStyle, StageCreate, StageInteract, StageLibrary}

// Index 返回阶段序号，未知阶段返回 -1
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// IsValid 检查阶段是否有效
func (s Stage) IsValid() bool {
	return s.Index() >= 0
}

// SessionState 交互会话状态
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateGenerating SessionState = "generating"
	SessionStateCompleted  SessionState = "completed"
	SessionStateFailed     SessionState = "failed"
)

// IsTerminal 是否为一次运行的终态
func (s SessionState) IsTerminal() bool {
	return s == SessionStateCompleted || s == SessionStateFailed
}
