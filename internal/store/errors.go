package store

import "errors"

var (
	ErrShiftNotFound      = errors.New("shift not found")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrBranchNotFound     = errors.New("branch not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrOverlapViolation   = errors.New("overlapping shift for employee")
	ErrDuplicate          = errors.New("record already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
