package client

import "errors"

var (
	ErrUnavailable   = errors.New("server unavailable")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("file not found")
	ErrExpired       = errors.New("link expired")
	ErrWrongPassword = errors.New("wrong password")
	ErrTooLarge      = errors.New("file too large")
	ErrBadRef        = errors.New("not a link, token or id")
)
