package service

import "github.com/lify-app/lify-backend/pkg/apperr"

var (
	ErrUserNotFound         = apperr.NotFound("user not found")
	ErrConversationNotFound = apperr.NotFound("conversation not found")
	ErrMessageNotFound      = apperr.NotFound("message not found")
	ErrReactionNotFound     = apperr.NotFound("reaction not found")

	ErrEmptyMessage       = apperr.InvalidArg("message must have content or media")
	ErrMessageTooLong     = apperr.InvalidArg("message too long")
	ErrInvalidMessageType = apperr.InvalidArg("invalid message type")
	ErrInvalidDuration    = apperr.InvalidArg("duration must not be negative")
	ErrSelfMessage        = apperr.InvalidArg("cannot send a message to yourself")
	ErrInvalidReplyTarget = apperr.InvalidArg("reply target is not part of this conversation")
	ErrInvalidCursor      = apperr.InvalidArg("invalid cursor")
	ErrInvalidEmoji       = apperr.InvalidArg("invalid emoji")
	ErrSelfFollow         = apperr.InvalidArg("cannot follow yourself")

	ErrNotParticipant       = apperr.Forbidden("not a participant of this conversation")
	ErrConversationRejected = apperr.Forbidden("this message request was rejected")
	ErrAcceptRequired       = apperr.Forbidden("accept the message request before replying")
	ErrOwnRequest           = apperr.Forbidden("cannot accept or reject your own request")
	ErrNotSender            = apperr.Forbidden("only the sender can change this message")
	ErrNotRecipient         = apperr.Forbidden("only the recipient can acknowledge delivery")

	ErrNotRequest     = apperr.FailedPrecondition("conversation is not a pending request")
	ErrMessageDeleted = apperr.FailedPrecondition("message was deleted")

	ErrEmailAlreadyExists    = apperr.AlreadyExists("email already exists")
	ErrUsernameAlreadyExists = apperr.AlreadyExists("username already exists")
	ErrInvalidCredentials    = apperr.Unauthorized("invalid credentials")
)
