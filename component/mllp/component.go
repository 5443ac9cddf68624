// Package mllp accepts HL7v2 messages over MLLP-framed TCP, the transport
// hospital interface engines typically speak. Each framed message runs
// through the transformation pipeline and is answered with an HL7 ACK:
// AA when a Patient was produced, AE when the message was rejected.
package mllp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"

	"github.com/hospicebridge/adtbridge/component"
	"github.com/hospicebridge/adtbridge/lib/hl7"
	"github.com/hospicebridge/adtbridge/lib/logging"
	"github.com/hospicebridge/adtbridge/pipeline"
)

const (
	// startBlock is the MLLP start-of-message byte (VT).
	startBlock = 0x0B
	// endBlock is the MLLP end-of-message byte (FS), followed on the wire
	// by a carriage return.
	endBlock       = 0x1C
	carriageReturn = 0x0D

	// maxFrameSize bounds the per-connection receive buffer (1 MB).
	maxFrameSize = 1 << 20

	readTimeout  = 30 * time.Second
	writeTimeout = 10 * time.Second
)

type Config struct {
	// Address is the TCP listen address, e.g. ":2575". Empty disables the
	// listener.
	Address string `koanf:"address"`
}

func (c Config) Enabled() bool {
	return c.Address != ""
}

// Sink receives every Patient produced from an accepted message.
type Sink interface {
	Deliver(ctx context.Context, patient fhir.Patient) error
}

var _ component.Lifecycle = (*Component)(nil)

type Component struct {
	config   Config
	pipeline *pipeline.Pipeline
	sink     Sink
	now      func() time.Time

	listener net.Listener
	mux      sync.Mutex
	conns    map[net.Conn]struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

// New creates the MLLP component. sink may be nil when no downstream
// delivery is configured.
func New(config Config, p *pipeline.Pipeline, sink Sink) *Component {
	return &Component{
		config:   config,
		pipeline: p,
		sink:     sink,
		now:      time.Now,
		conns:    make(map[net.Conn]struct{}),
		done:     make(chan struct{}),
	}
}

func (c *Component) RegisterHttpHandlers(_ *http.ServeMux, _ *http.ServeMux) {
	// Nothing to do
}

func (c *Component) Start() error {
	listener, err := net.Listen("tcp", c.config.Address)
	if err != nil {
		return fmt.Errorf("mllp: listen on %s: %w", c.config.Address, err)
	}
	c.listener = listener
	slog.Info("MLLP listener started", slog.String("address", listener.Addr().String()))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.acceptLoop()
	}()
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	close(c.done)
	var err error
	if c.listener != nil {
		err = c.listener.Close()
	}
	c.mux.Lock()
	for conn := range c.conns {
		_ = conn.Close()
	}
	c.mux.Unlock()
	c.wg.Wait()
	return err
}

// Addr returns the bound listener address, which differs from the configured
// one when listening on port 0.
func (c *Component) Addr() string {
	if c.listener != nil {
		return c.listener.Addr().String()
	}
	return c.config.Address
}

func (c *Component) acceptLoop() {
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			slog.Error("MLLP accept failed", logging.Error(err))
			return
		}
		c.trackConn(conn, true)
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			defer c.trackConn(conn, false)
			defer conn.Close()
			c.handleConnection(conn)
		}()
	}
}

func (c *Component) trackConn(conn net.Conn, add bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if add {
		c.conns[conn] = struct{}{}
	} else {
		delete(c.conns, conn)
	}
}

// handleConnection reads frames until the peer disconnects, goes idle past
// the read timeout, or the component stops.
func (c *Component) handleConnection(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	buf := make([]byte, 0, 4096)
	readBuf := make([]byte, 4096)

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := conn.Read(readBuf)
		if n > 0 {
			buf = append(buf, readBuf[:n]...)
			if len(buf) > maxFrameSize {
				slog.Warn("MLLP frame exceeds maximum size, closing connection", logging.Remote(remote))
				return
			}
			for {
				message, rest, found := unframe(buf)
				if !found {
					break
				}
				buf = rest
				c.respond(conn, c.handleMessage(string(message), remote))
			}
		}
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				if len(buf) == 0 {
					return
				}
				continue
			}
			return
		}
	}
}

// handleMessage runs one message through the pipeline and returns the raw
// ACK to send back.
func (c *Component) handleMessage(raw string, remote string) []byte {
	controlID := messageControlID(raw)

	result, err := c.pipeline.Process(raw, c.now().UTC())
	if err != nil {
		slog.Warn("Rejecting HL7 message",
			logging.Error(err), logging.ControlID(controlID), logging.Remote(remote))
		return c.ack("AE", controlID, err.Error())
	}

	if c.sink != nil {
		if err := c.sink.Deliver(context.Background(), result.Patient); err != nil {
			slog.Error("Failed to deliver Patient downstream",
				logging.Error(err), logging.ControlID(controlID))
			return c.ack("AE", controlID, "downstream delivery failed")
		}
	}

	slog.Info("Processed HL7 admission",
		logging.ControlID(controlID),
		logging.PatientID(result.Admission.PatientID),
		slog.String("classification", string(result.Episode.Classification)))
	return c.ack("AA", controlID, "")
}

// ack builds a framed HL7 ACK. MSA-2 echoes the original control ID so the
// sender can correlate; AE acks carry the rejection text in MSA-3.
func (c *Component) ack(code, originalControlID, text string) []byte {
	timestamp := c.now().UTC().Format("20060102150405")
	msh := strings.Join([]string{
		"MSH", "^~\\&", "ADTBRIDGE", "HOSPICE", "", "", timestamp, "",
		"ACK^A01", uuid.NewString(), "P", "2.5",
	}, "|")
	msa := strings.Join([]string{"MSA", code, originalControlID, text}, "|")
	return frame([]byte(msh + "\r" + msa))
}

func (c *Component) respond(conn net.Conn, response []byte) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(response); err != nil {
		slog.Error("Failed to write MLLP response", logging.Error(err))
	}
}

// messageControlID extracts MSH-10 so rejection acks can still reference
// the message. Returns empty on anything unparseable.
func messageControlID(raw string) string {
	message, err := hl7.Parse(raw)
	if err != nil {
		return ""
	}
	msh, ok := message.Segment("MSH")
	if !ok {
		return ""
	}
	return msh.Field(10).Value()
}

func frame(data []byte) []byte {
	framed := make([]byte, 0, len(data)+3)
	framed = append(framed, startBlock)
	framed = append(framed, data...)
	framed = append(framed, endBlock, carriageReturn)
	return framed
}

// unframe extracts one complete message from the buffer, returning the
// remainder and whether a full frame was present.
func unframe(data []byte) (message []byte, rest []byte, found bool) {
	start := bytes.IndexByte(data, startBlock)
	if start == -1 {
		return nil, data, false
	}
	end := bytes.Index(data[start+1:], []byte{endBlock, carriageReturn})
	if end == -1 {
		return nil, data, false
	}
	end = start + 1 + end
	return data[start+1 : end], data[end+2:], true
}
