package mc_debugger

// 作用域引用从scopeReferenceBase开始，按栈帧id偏移
const scopeReferenceBase = 1002

// ReferenceUtil 引用工具类，变量都是分数，只有作用域需要引用
type ReferenceUtil struct{}

func NewReferenceUtil() *ReferenceUtil {
	return &ReferenceUtil{}
}

// GetScopesReference 根据栈帧获取Scope引用
func (r *ReferenceUtil) GetScopesReference(frameID int) int {
	return scopeReferenceBase + frameID
}

// CheckIsScopeReference 判断是否是Scope引用
func (r *ReferenceUtil) CheckIsScopeReference(reference int) bool {
	return reference >= scopeReferenceBase
}

// GetFrameIDByScopeReference 获取栈帧id
func (r *ReferenceUtil) GetFrameIDByScopeReference(reference int) int {
	return reference - scopeReferenceBase
}
