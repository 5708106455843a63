package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrStoreUnavailable 持久层暂时不可用（瞬时基础设施故障）
var ErrStoreUnavailable = errors.New("存储暂时不可用，请稍后重试")
