package task

import (
	"sync"

	"github.com/haierkeys/lww-note-sync/internal/app"
)

// TaskFactory 任务工厂函数类型，返回 nil 任务表示按配置禁用
type TaskFactory func(appContainer *app.App) (Task, error)

var (
	taskRegistry  []TaskFactory
	registryMutex sync.RWMutex
)

// RegisterWithApp 注册服务端任务工厂
// 通常在各个任务文件的 init() 函数中调用
func RegisterWithApp(factory TaskFactory) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	taskRegistry = append(taskRegistry, factory)
}

// GetFactories 获取所有已注册的任务工厂
func GetFactories() []TaskFactory {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	factories := make([]TaskFactory, len(taskRegistry))
	copy(factories, taskRegistry)
	return factories
}
