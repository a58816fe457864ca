package conversations

import "errors"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNoConversation = errors.New("no conversation yet")
	ErrBusy           = errors.New("conversation is busy")
	ErrGeneration     = errors.New("answer generation failed")
)
