package application

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrBarNotFound        = errors.New("bar not found")
	ErrForbidden          = errors.New("not allowed to update this bar")
	ErrInvalidCount       = errors.New("count must be a non-negative integer")
)
