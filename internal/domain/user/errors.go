package user

import "errors"

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrTeamNotFound           = errors.New("team not found")
	ErrInactiveUser           = errors.New("user is inactive")
	ErrAdminPrivilegeRequired = errors.New("admin privilege required")
)
