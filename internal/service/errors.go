package service

import (
	"errors"
	"fmt"
)

const (
	BadRequest          = 400
	Unauthorized        = 403
	NotFound            = 404
	Gone                = 410
	InternalServerError = 500
)

var (
	ErrParamInvalid   = errors.New("参数错误")
	ErrAssetNotFound  = errors.New("文件不存在")
	ErrAssetGone      = errors.New("文件已被清理")
	ErrAssetPermanent = errors.New("文件已永久保留，不能再排期清理")
	ErrForbidden      = errors.New("权限不足")
	ErrStorageIO      = errors.New("存储异常，请稍后重试")
	UnExpectedError   = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:   BadRequest,
	ErrAssetNotFound:  NotFound,
	ErrAssetGone:      Gone,
	ErrAssetPermanent: BadRequest,
	ErrForbidden:      Unauthorized,
	ErrStorageIO:      InternalServerError,
	UnExpectedError:   InternalServerError,
}

// RejectedError 准入阶段的拒绝，携带失败阶段和原因，不会自动重试
type RejectedError struct {
	Phase  string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("文件校验未通过[%s]: %s", e.Phase, e.Reason)
}

// NewRejectedError 构造准入拒绝
func NewRejectedError(phase, reason string) *RejectedError {
	return &RejectedError{Phase: phase, Reason: reason}
}
