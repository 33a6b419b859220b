package handlers

import (
	telebot "gopkg.in/telebot.v3"
)

// Handler processes bot commands and text messages.
type Handler func(c telebot.Context) error

// CallbackHandler processes an inline callback event already decoded into
// its flow id and payload segments.
type CallbackHandler func(c telebot.Context, flowID, payload string) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler
