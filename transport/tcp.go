package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("Transport is not connected")

// Handler receives inbound traffic from the transport. OnMessage is invoked
// once per complete inbound message, always from the same goroutine, never
// concurrently. OnDisconnected is invoked when the transport detects a
// failure, not on an explicit Disconnect.
type Handler interface {
	OnMessage(data []byte)
	OnDisconnected()
}

// TCP is the client side of the tracker connection. Messages are newline
// framed JSON objects in both directions.
type TCP struct {
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	conn   *net.TCPConn
	cancel context.CancelFunc
	ctx    context.Context

	// wmu serializes writes into the connection
	wmu sync.Mutex

	loopWaiter sync.WaitGroup
}

func NewTCP(options Options) *TCP {
	options = options.withDefaults()

	return &TCP{
		opts: options,
		log:  options.Log,
	}
}

// Connect dials the server and starts the read loop. The handler will see
// every complete inbound message until the connection goes away.
func (t *TCP) Connect(host string, port int, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return errors.New("Transport is already connected")
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := net.DialTimeout("tcp", addr, t.opts.DialTimeout)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	tcpConn := conn.(*net.TCPConn)
	t.conn = tcpConn
	t.ctx = ctx
	t.cancel = cancel

	t.loopWaiter.Add(1)

	go func() {
		defer t.loopWaiter.Done()
		t.readLoop(ctx, tcpConn, handler)
	}()

	t.log.Info("Connected", zap.String("addr", addr))

	return nil
}

// Disconnect closes the connection. It is idempotent and never fires the
// handler's OnDisconnected.
func (t *TCP) Disconnect() error {
	t.mu.Lock()

	if t.conn == nil {
		t.mu.Unlock()
		return nil
	}

	conn := t.conn
	t.conn = nil
	t.cancel()
	t.mu.Unlock()

	err := conn.Close()
	t.loopWaiter.Wait()

	t.log.Info("Disconnected")

	return err
}

// Send writes one complete outbound message. The trailing newline frame is
// added here.
func (t *TCP) Send(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	if t.opts.Trace {
		t.log.Debug("SEND", zap.ByteString("data", data))
	}

	t.wmu.Lock()
	defer t.wmu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(t.opts.WriteTimeout)); err != nil {
		return err
	}

	_, err := conn.Write(append(data, '\n'))

	return err
}

func (t *TCP) readLoop(ctx context.Context, conn *net.TCPConn, handler Handler) {
	log := t.log.Named("readLoop")
	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			select {
			case <-ctx.Done():
				// Explicit Disconnect, nothing to report.
				log.Debug("Read loop exiting")

			default:
				log.Warn("Connection lost", zap.Error(err))
				t.teardown(conn)
				handler.OnDisconnected()
			}

			return
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			continue
		}

		if t.opts.Trace {
			log.Debug("RECV", zap.ByteString("data", line))
		}

		handler.OnMessage(line)
	}
}

// teardown clears the connection after a transport-detected failure so a
// later Connect can succeed.
func (t *TCP) teardown(conn *net.TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == conn {
		t.conn = nil
		t.cancel()
	}

	conn.Close()
}
