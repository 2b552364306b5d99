package repository

import "errors"

// ErrDuplicate 唯一索引冲突，需要 gorm.Config.TranslateError
var ErrDuplicate = errors.New("duplicate record")
