package domain

import "errors"

// Business-rule rejections. Engine components return these wrapped with a
// human-readable reason; callers discriminate with errors.Is and surface
// the message directly.
var (
	ErrValidation        = errors.New("validation failed")
	ErrCapExceeded       = errors.New("cap exceeded")
	ErrCategoryViolation = errors.New("honour category not allowed for this unit")
	ErrInsufficientRP    = errors.New("insufficient requisition points")
	ErrNotFound          = errors.New("not found")
)

// Persistence errors. These use the recovery channel rather than the
// business-rule result path.
var (
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	ErrRecoveryFailed  = errors.New("recovery failed: no usable snapshot")
)

// Battle workflow errors.
var (
	ErrBattleSealed     = errors.New("battle record is sealed")
	ErrBattleUnresolved = errors.New("battle has unresolved out-of-action tests")
)
