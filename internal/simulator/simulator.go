// Package simulator implements an in-process tracker server speaking the
// same JSON wire protocol the real device server does. It backs the engine
// test suites and the `iris simulate` command, so client code can be
// exercised without hardware.
package simulator

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"sync"

	reuseport "github.com/kavu/go_reuseport"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/iris/protocol"
)

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on. 0 picks an ephemeral port, see Port().
	Port int

	// Device is the initial device state document. Defaults to
	// DefaultDevice.
	Device string

	Log *zap.Logger
}

// DefaultDevice is a healthy generation 2 tracker on a 1920x1080 screen.
// It must stay on a single line: gets copy field values into replies as raw
// JSON, and the wire protocol is newline framed.
const DefaultDevice = `{"version": 2, "trackerstate": 0, "framerate": 60, "iscalibrated": false, "iscalibrating": false, "screenindex": 0, "screenresw": 1920, "screenresh": 1080, "screenpsyw": 510.0, "screenpsyh": 287.0, "frame": {"time": 0, "fix": false, "state": 0, "raw": {"x": 0, "y": 0}, "avg": {"x": 0, "y": 0}, "lefteye": {"avg": {"x": 0, "y": 0}}, "righteye": {"avg": {"x": 0, "y": 0}}}}`

// Server is a simulated tracker. Device state lives in a single JSON
// document, gets are answered by field lookup and sets are merged in.
type Server struct {
	ctx    context.Context
	cancel context.CancelFunc

	listener   net.Listener
	loopWaiter sync.WaitGroup

	mu          sync.Mutex
	activeConns map[net.Conn]struct{}

	// wmu keeps reply writes and broadcast pushes from interleaving
	wmu sync.Mutex

	deviceMu sync.Mutex
	device   []byte

	calibMu         sync.Mutex
	calibPointCount int
	calibProcessed  int
	calibOutcome    string

	log *zap.Logger
}

func New(options Options) (*Server, error) {
	device := options.Device
	if device == "" {
		device = DefaultDevice
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	listener, err := reuseport.Listen("tcp", net.JoinHostPort(options.Host, strconv.Itoa(options.Port)))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		ctx:          ctx,
		cancel:       cancel,
		listener:     listener,
		activeConns:  make(map[net.Conn]struct{}),
		device:       []byte(device),
		calibOutcome: `{"result":true,"deg":0.9,"calibpoints":[]}`,
		log:          log.Named("simulator"),
	}

	s.loopWaiter.Add(1)

	go func() {
		defer s.loopWaiter.Done()
		s.acceptLoop()
	}()

	s.log.Info("Simulated tracker listening", zap.String("addr", listener.Addr().String()))

	return s, nil
}

// Port returns the port the simulator is listening on.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Close is idempotent.
func (s *Server) Close() (err error) {
	select {
	case <-s.ctx.Done():
		return nil
	default:
	}

	s.cancel()

	err = multierr.Append(err, s.listener.Close())

	s.mu.Lock()
	for conn := range s.activeConns {
		err = multierr.Append(err, conn.Close())
		delete(s.activeConns, conn)
	}
	s.mu.Unlock()

	s.loopWaiter.Wait()

	return err
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
			default:
				s.log.Warn("Accept failed", zap.Error(err))
			}

			return
		}

		s.addConn(conn)

		s.loopWaiter.Add(1)

		go func() {
			defer s.loopWaiter.Done()
			defer s.removeConn(conn)

			s.serve(conn)
		}()
	}
}

func (s *Server) addConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeConns[conn] = struct{}{}
}

func (s *Server) removeConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activeConns[conn]; ok {
		conn.Close()
		delete(s.activeConns, conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	log := s.log.Named("conn").With(zap.String("remote", conn.RemoteAddr().String()))
	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			log.Debug("Client went away", zap.Error(err))
			return
		}

		reply, err := s.handle(line)
		if err != nil {
			log.Warn("Failed to handle request", zap.Error(err), zap.ByteString("request", line))
			continue
		}

		if reply == nil {
			continue
		}

		if werr := s.write(conn, reply); werr != nil {
			log.Warn("Failed to reply", zap.Error(werr))
			return
		}
	}
}

func (s *Server) write(conn net.Conn, data []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	_, err := conn.Write(append(data, '\n'))

	return err
}

// Broadcast pushes one raw message to every connected client. Used for
// unsolicited change notifications.
func (s *Server) Broadcast(data []byte) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.activeConns {
		err = multierr.Append(err, s.write(conn, data))
	}

	return err
}

// NotifyDisplayChange pushes a display change notification (statuscode 801).
func (s *Server) NotifyDisplayChange() error {
	return s.Broadcast([]byte(`{"category":"tracker","statuscode":801}`))
}

// NotifyCalibrationChange pushes a calibration change notification (800).
func (s *Server) NotifyCalibrationChange() error {
	return s.Broadcast([]byte(`{"category":"calibration","statuscode":800}`))
}

// NotifyTrackerStateChange pushes a tracker state notification (802).
func (s *Server) NotifyTrackerStateChange() error {
	return s.Broadcast([]byte(`{"category":"tracker","statuscode":802}`))
}

// SetDeviceField updates one field of the device document, e.g. to script a
// state change before pushing a notification.
func (s *Server) SetDeviceField(path string, value interface{}) error {
	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()

	device, err := sjson.SetBytes(s.device, path, value)
	if err != nil {
		return err
	}

	s.device = device

	return nil
}

// SetCalibOutcome replaces the calibresult payload attached to the final
// pointend reply of a calibration sequence.
func (s *Server) SetCalibOutcome(raw string) {
	s.calibMu.Lock()
	defer s.calibMu.Unlock()

	s.calibOutcome = raw
}

// handle decodes one client request and builds the reply, or nil when the
// request warrants none.
func (s *Server) handle(request []byte) ([]byte, error) {
	if !gjson.ValidBytes(request) {
		return nil, errors.New("Request is not valid JSON")
	}

	root := gjson.ParseBytes(request)

	category := root.Get("category").String()
	req := root.Get("request").String()
	id := root.Get("id")

	switch protocol.Category(category) {
	case protocol.CategoryTracker:
		switch protocol.Request(req) {
		case protocol.RequestGet:
			return s.handleTrackerGet(root, id)
		case protocol.RequestSet:
			return s.handleTrackerSet(root, id)
		}

	case protocol.CategoryCalibration:
		return s.handleCalibration(protocol.Request(req), root, id)
	}

	return nil, errors.New("Unknown request")
}

func (s *Server) handleTrackerGet(root, id gjson.Result) ([]byte, error) {
	reply, err := newReply(protocol.CategoryTracker, protocol.RequestGet, id)
	if err != nil {
		return nil, err
	}

	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()

	for _, field := range root.Get("values").Array() {
		name := field.String()

		value := gjson.GetBytes(s.device, name)
		if !value.Exists() {
			continue
		}

		if reply, err = sjson.SetRawBytes(reply, "values."+name, []byte(value.Raw)); err != nil {
			return nil, err
		}
	}

	return reply, nil
}

func (s *Server) handleTrackerSet(root, id gjson.Result) ([]byte, error) {
	s.deviceMu.Lock()

	var err error

	device := s.device

	root.Get("values").ForEach(func(key, value gjson.Result) bool {
		device, err = sjson.SetRawBytes(device, key.String(), []byte(value.Raw))
		return err == nil
	})

	if err == nil {
		s.device = device
	}

	s.deviceMu.Unlock()

	if err != nil {
		return nil, err
	}

	return newReply(protocol.CategoryTracker, protocol.RequestSet, id)
}

func (s *Server) handleCalibration(req protocol.Request, root, id gjson.Result) ([]byte, error) {
	switch req {
	case protocol.RequestStart:
		s.calibMu.Lock()
		s.calibPointCount = int(root.Get("values.pointcount").Int())
		s.calibProcessed = 0
		s.calibMu.Unlock()

		_ = s.SetDeviceField("iscalibrating", true)

		return newReply(protocol.CategoryCalibration, protocol.RequestStart, id)

	case protocol.RequestPointStart:
		return newReply(protocol.CategoryCalibration, protocol.RequestPointStart, id)

	case protocol.RequestPointEnd:
		s.calibMu.Lock()
		s.calibProcessed++
		done := s.calibPointCount > 0 && s.calibProcessed == s.calibPointCount
		outcome := s.calibOutcome
		s.calibMu.Unlock()

		reply, err := newReply(protocol.CategoryCalibration, protocol.RequestPointEnd, id)
		if err != nil {
			return nil, err
		}

		if !done {
			return reply, nil
		}

		_ = s.SetDeviceField("iscalibrating", false)
		_ = s.SetDeviceField("iscalibrated", true)
		_ = s.SetDeviceField("calibresult", gjson.Parse(outcome).Value())

		return sjson.SetRawBytes(reply, "values.calibresult", []byte(outcome))

	case protocol.RequestAbort:
		s.calibMu.Lock()
		s.calibPointCount = 0
		s.calibProcessed = 0
		s.calibMu.Unlock()

		_ = s.SetDeviceField("iscalibrating", false)

		return newReply(protocol.CategoryCalibration, protocol.RequestAbort, id)

	case protocol.RequestClear:
		_ = s.SetDeviceField("iscalibrated", false)

		return newReply(protocol.CategoryCalibration, protocol.RequestClear, id)
	}

	return nil, errors.New("Unknown calibration request")
}

// newReply builds an OK reply envelope, echoing the request id when there
// was one.
func newReply(category protocol.Category, request protocol.Request, id gjson.Result) ([]byte, error) {
	reply := []byte("{}")

	var err error

	if id.Exists() {
		if reply, err = sjson.SetBytes(reply, "id", id.Int()); err != nil {
			return nil, err
		}
	}

	if reply, err = sjson.SetBytes(reply, "category", string(category)); err != nil {
		return nil, err
	}

	if reply, err = sjson.SetBytes(reply, "request", string(request)); err != nil {
		return nil, err
	}

	return sjson.SetBytes(reply, "statuscode", int(protocol.StatusOK))
}
