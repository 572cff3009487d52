package config

import "sync/atomic"

// Snapshot 持有当前生效的配置指针，支持与在途请求并发的热重载：
// 重载成功才原子替换，失败时旧配置原样生效。
type Snapshot struct {
	path    string
	current atomic.Pointer[Config]
}

// NewSnapshot 加载 path 指向的配置并包装为可重载的快照。
func NewSnapshot(path string) (*Snapshot, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{path: path}
	s.current.Store(cfg)
	return s, nil
}

// Current 返回当前生效的不可变配置。调用方不得修改返回值。
func (s *Snapshot) Current() *Config {
	return s.current.Load()
}

// Reload 重新加载配置文件。成功时替换快照并返回新配置；
// 失败时返回错误且保持旧配置不变。
func (s *Snapshot) Reload() (*Config, error) {
	cfg, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.current.Store(cfg)
	return cfg, nil
}
