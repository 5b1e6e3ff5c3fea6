package transport

import (
	"time"

	"go.uber.org/zap"
)

type Options struct {
	// DialTimeout bounds how long Connect will wait for the server.
	DialTimeout time.Duration

	// WriteTimeout bounds each outbound write.
	WriteTimeout time.Duration

	// Trace will dump messages to the logger. This is only useful in local
	// debugging.
	Trace bool

	Log *zap.Logger
}

const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultWriteTimeout = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.DialTimeout == 0 {
		o.DialTimeout = DefaultDialTimeout
	}

	if o.WriteTimeout == 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}

	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	return o
}
