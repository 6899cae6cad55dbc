package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type envelopeKind string

const (
	kindCall  envelopeKind = "call"
	kindReply envelopeKind = "reply"
)

const (
	closeGrace = time.Second

	// maxFrameSize caps a single inbound frame.
	maxFrameSize = 1 << 20
	// maxInboundCalls caps calls served concurrently; extra calls are
	// rejected with codeBusy instead of queueing behind the read loop.
	maxInboundCalls = 64
)

const (
	codeHandlerNotFound = "handler_not_found"
	codeHandlerFailed   = "handler_failed"
	codeBusy            = "busy"
)

// envelope is the wire frame. The id only correlates a reply with its call.
type envelope struct {
	ID     string          `json:"id"`
	Kind   envelopeKind    `json:"kind"`
	Op     Op              `json:"op,omitempty"`
	Args   json.RawMessage `json:"args,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *wireError      `json:"error,omitempty"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Peer is one end of a websocket bridge connection. It serves inbound calls
// from its local registry and correlates replies to its outbound calls.
type Peer struct {
	conn  *websocket.Conn
	local *Registry

	outbound chan []byte
	slots    chan struct{}
	quit     chan struct{}
	done     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	wg       sync.WaitGroup
	quitOnce sync.Once

	pendingMu sync.Mutex
	pending   map[string]chan envelope

	errMu sync.Mutex
	err   error
}

// NewPeer starts serving conn. The peer owns conn from here on.
func NewPeer(conn *websocket.Conn, local *Registry) *Peer {
	conn.SetReadLimit(maxFrameSize)

	ctx, cancel := context.WithCancel(context.Background())
	p := &Peer{
		conn:     conn,
		local:    local,
		outbound: make(chan []byte, 32),
		slots:    make(chan struct{}, maxInboundCalls),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[string]chan envelope),
	}

	p.wg.Add(2)
	go p.readLoop()
	go p.writeLoop()
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return p
}

// Call sends op to the remote side and waits for its reply.
func (p *Peer) Call(ctx context.Context, op Op, args any) (json.RawMessage, error) {
	payload, err := encodePayload(args)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s args", op)
	}

	id := uuid.NewString()
	replies := make(chan envelope, 1)
	p.pendingMu.Lock()
	p.pending[id] = replies
	p.pendingMu.Unlock()
	defer func() {
		p.pendingMu.Lock()
		delete(p.pending, id)
		p.pendingMu.Unlock()
	}()

	if err := p.send(ctx, envelope{ID: id, Kind: kindCall, Op: op, Args: payload}); err != nil {
		return nil, errors.Wrapf(err, "send %s", op)
	}

	select {
	case reply := <-replies:
		return replyResult(op, reply)
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "await %s", op)
	case <-p.quit:
		return nil, errors.Wrapf(ErrNotConnected, "await %s", op)
	}
}

// Done is closed once both connection loops have exited.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the connection ends and returns the first abnormal error.
func (p *Peer) Wait() error {
	<-p.done
	return p.waitErr()
}

// Close tears down the connection and waits for the loops to exit.
func (p *Peer) Close() error {
	p.shutdown()
	<-p.done
	return p.waitErr()
}

func (p *Peer) shutdown() {
	p.quitOnce.Do(func() {
		close(p.quit)
		p.cancel()
	})
}

func (p *Peer) send(ctx context.Context, env envelope) error {
	frame, err := json.Marshal(env)
	if err != nil {
		return err
	}
	select {
	case p.outbound <- frame:
		return nil
	case <-p.quit:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Peer) readLoop() {
	defer p.wg.Done()
	defer p.shutdown()

	for {
		_, frame, err := p.conn.ReadMessage()
		if err != nil {
			p.setErr(errors.Wrap(err, "read bridge frame"))
			return
		}

		var env envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			log.WithError(err).Warn("Dropping malformed bridge frame")
			continue
		}

		switch env.Kind {
		case kindCall:
			select {
			case p.slots <- struct{}{}:
				go func(call envelope) {
					defer func() { <-p.slots }()
					p.serve(call)
				}(env)
			default:
				p.reject(env, codeBusy, "too many calls in flight")
			}
		case kindReply:
			p.deliver(env)
		default:
			log.WithField("kind", env.Kind).Warn("Dropping bridge frame of unknown kind")
		}
	}
}

func (p *Peer) writeLoop() {
	defer p.wg.Done()
	defer p.conn.Close()

	for {
		select {
		case frame := <-p.outbound:
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				p.setErr(errors.Wrap(err, "write bridge frame"))
				p.shutdown()
				return
			}
		case <-p.quit:
			_ = p.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeGrace))
			return
		}
	}
}

func (p *Peer) serve(call envelope) {
	reply := envelope{ID: call.ID, Kind: kindReply, Op: call.Op}

	result, err := p.local.Invoke(p.ctx, call.Op, call.Args)
	switch {
	case errors.Is(err, ErrHandlerNotFound):
		reply.Error = &wireError{Code: codeHandlerNotFound, Message: err.Error()}
	case err != nil:
		reply.Error = &wireError{Code: codeHandlerFailed, Message: err.Error()}
	default:
		reply.Result = result
	}

	if err != nil {
		log.WithFields(log.Fields{"op": call.Op, "side": p.local.Side()}).WithError(err).Debug("Bridge call failed")
	}
	if sendErr := p.send(p.ctx, reply); sendErr != nil {
		log.WithField("op", call.Op).WithError(sendErr).Debug("Dropping bridge reply")
	}
}

func (p *Peer) reject(call envelope, code, message string) {
	log.WithField("op", call.Op).Warn("Rejecting bridge call")
	reply := envelope{ID: call.ID, Kind: kindReply, Op: call.Op, Error: &wireError{Code: code, Message: message}}
	if err := p.send(p.ctx, reply); err != nil {
		log.WithField("op", call.Op).WithError(err).Debug("Dropping bridge reply")
	}
}

func (p *Peer) deliver(reply envelope) {
	p.pendingMu.Lock()
	replies, ok := p.pending[reply.ID]
	p.pendingMu.Unlock()
	if !ok {
		log.WithField("op", reply.Op).Debug("Dropping reply for unknown call")
		return
	}
	select {
	case replies <- reply:
	default:
	}
}

func replyResult(op Op, reply envelope) (json.RawMessage, error) {
	if reply.Error == nil {
		return reply.Result, nil
	}
	if reply.Error.Code == codeHandlerNotFound {
		return nil, errors.Wrapf(ErrHandlerNotFound, "%s on remote side", op)
	}
	return nil, &RemoteError{Op: op, Code: reply.Error.Code, Message: reply.Error.Message}
}

func (p *Peer) waitErr() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

func (p *Peer) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(errors.Cause(err),
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}
	select {
	case <-p.quit:
		// Errors after a local shutdown are the closed socket talking.
		return
	default:
	}

	p.errMu.Lock()
	defer p.errMu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

// Dial connects to a bridge server and serves local on the new connection.
func Dial(ctx context.Context, url string, local *Registry) (*Peer, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dial bridge %s", url)
	}
	return NewPeer(conn, local), nil
}
