package engine

import "errors"

var (
	ErrNotReady         = errors.New("engine is not ready")
	ErrNotAnalyzing     = errors.New("engine is not analyzing")
	ErrTerminalPosition = errors.New("position has no legal moves")
	ErrHandshake        = errors.New("engine handshake failed")
	ErrProcessExited    = errors.New("engine process exited")
	ErrConnectAborted   = errors.New("engine connect aborted by disconnect")
)
