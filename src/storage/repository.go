package storage

import (
	"errors"
	"sync"
	"time"

	"VocDashboard/src/processor"
)

// Loader 数据加载接口，由文件数据源实现
type Loader interface {
	Load() (*processor.RecordSet, error)
}

// LoaderFunc 函数适配为Loader
type LoaderFunc func() (*processor.RecordSet, error)

func (f LoaderFunc) Load() (*processor.RecordSet, error) { return f() }

// Repository 全量数据集的惰性缓存
// 首次访问时加载，之后返回同一份只读数据，直到调用Invalidate
type Repository struct {
	loader   Loader
	mu       sync.Mutex
	data     *processor.RecordSet
	loadedAt time.Time
}

// NewRepository 基于加载器创建仓库
func NewRepository(loader Loader) *Repository {
	return &Repository{loader: loader}
}

// NewStaticRepository 基于内存数据创建仓库，主要用于测试
func NewStaticRepository(rs *processor.RecordSet) *Repository {
	return &Repository{
		loader:   LoaderFunc(func() (*processor.RecordSet, error) { return rs, nil }),
		data:     rs,
		loadedAt: time.Now(),
	}
}

// Records 返回全量数据集，必要时加载
// 加载失败不缓存，下次调用会重试
func (r *Repository) Records() (*processor.RecordSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.data != nil {
		return r.data, nil
	}
	if r.loader == nil {
		return nil, errors.New("repository has no loader")
	}

	rs, err := r.loader.Load()
	if err != nil {
		return nil, err
	}
	r.data = rs
	r.loadedAt = time.Now()
	return rs, nil
}

// Invalidate 丢弃缓存，下次访问重新加载
func (r *Repository) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = nil
	r.loadedAt = time.Time{}
}

// LoadedAt 最近一次加载时间，未加载时为零值
func (r *Repository) LoadedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadedAt
}
