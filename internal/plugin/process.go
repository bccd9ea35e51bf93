package plugin

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/mosaic-db/mosaic/internal/errs"
	"github.com/mosaic-db/mosaic/internal/logger"
)

// JSON-RPC error codes shared between the host transport and the plugin-side
// dispatcher. The reserved range follows the JSON-RPC 2.0 spec; the server
// range starts at the connection-failure code.
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeConnectionFailed = -32000
	CodeOperationFailed  = -32001
	CodeUnsupported      = -32002
	CodeInvalidParams    = -32003
)

type callResult struct {
	result json.RawMessage
	err    error
}

type rpcCall struct {
	req   Request
	reply chan callResult
}

// Process owns one plugin child process and multiplexes JSON-RPC calls over
// its stdio. A single event-loop goroutine owns the child's stdin writer,
// its stdout reader and the pending-request map; no other goroutine touches
// them, so the map needs no lock.
type Process struct {
	cmd      *exec.Cmd
	requests chan rpcCall
	shutdown chan struct{}
	done     chan struct{}
	once     sync.Once
	nextID   atomic.Uint64
	log      *logger.Logger
}

// Spawn starts the plugin executable with stdin and stdout piped. Spawn
// failure is returned synchronously; after a successful return the process
// is in its running state and ready for Call.
func Spawn(path string, log *logger.Logger) (*Process, error) {
	if log == nil {
		log = logger.Nop()
	}

	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindTransport, "cannot open plugin stdin", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindTransport, "cannot open plugin stdout", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindTransport, "cannot open plugin stderr", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTransport, fmt.Sprintf("failed to start plugin process %s", path), err)
	}

	p := &Process{
		cmd: cmd,
		// Unbuffered on purpose: once the loop exits, senders fall through to
		// the done channel instead of parking a request nobody will answer.
		requests: make(chan rpcCall),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		log:      log,
	}

	go p.forwardStderr(stderr)
	go p.run(stdin, stdout)
	return p, nil
}

// PID reports the child's process id.
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// forwardStderr pipes the child's stderr into the host log line by line.
func (p *Process) forwardStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		p.log.Warnf("plugin: %s", sc.Text())
	}
}

// run is the single-owner event loop. It multiplexes outbound calls, inbound
// response lines and the shutdown signal, and is the only goroutine that
// writes to stdin or reads the pending map.
func (p *Process) run(stdin io.WriteCloser, stdout io.Reader) {
	pending := make(map[uint64]chan callResult)

	lines := make(chan []byte)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for sc.Scan() {
			line := make([]byte, len(sc.Bytes()))
			copy(line, sc.Bytes())
			lines <- line
		}
	}()

	defer func() {
		stdin.Close()
		p.cmd.Process.Kill()
		// Reap the child so it does not linger as a zombie, and unblock the
		// reader goroutine if it is parked on a send.
		go p.cmd.Wait()
		go func() {
			for range lines {
			}
		}()
		for id, reply := range pending {
			delete(pending, id)
			reply <- callResult{err: errs.New(errs.ErrKindTransport, "plugin process closed")}
		}
		close(p.done)
	}()

	for {
		select {
		case <-p.shutdown:
			p.log.Info("plugin shutdown requested, terminating child")
			return

		case c := <-p.requests:
			pending[c.req.ID] = c.reply
			frame, err := json.Marshal(c.req)
			if err == nil {
				frame = append(frame, '\n')
				_, err = stdin.Write(frame)
			}
			if err != nil {
				// A failed write must resolve this call immediately, not
				// leave it to stall forever.
				delete(pending, c.req.ID)
				c.reply <- callResult{err: errs.Wrap(errs.ErrKindTransport, "plugin write failed", err)}
			}

		case line, ok := <-lines:
			if !ok {
				p.log.Error("plugin process exited unexpectedly")
				return
			}
			var resp Response
			if err := json.Unmarshal(line, &resp); err != nil {
				p.log.Errorf("malformed plugin response skipped: %v", err)
				continue
			}
			reply, ok := pending[resp.ID]
			if !ok {
				// Response for an abandoned or already-answered request.
				continue
			}
			delete(pending, resp.ID)
			if resp.Error != nil {
				reply <- callResult{err: mapRPCError(resp.Error)}
				continue
			}
			reply <- callResult{result: resp.Result}
		}
	}
}

// Call sends one request and waits for its reply. Replies may arrive in any
// order; correlation is by id. Context expiry abandons the call, the eventual
// reply is silently dropped by the loop.
func (p *Process) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "cannot encode rpc params", err)
	}

	c := rpcCall{
		req: Request{
			JSONRPC: "2.0",
			Method:  method,
			Params:  raw,
			ID:      p.nextID.Add(1),
		},
		reply: make(chan callResult, 1),
	}

	select {
	case p.requests <- c:
	case <-p.done:
		return nil, errs.New(errs.ErrKindTransport, "plugin process closed")
	case <-ctx.Done():
		return nil, errs.Wrap(errs.ErrKindTimeout, "rpc call abandoned", ctx.Err())
	}

	select {
	case res := <-c.reply:
		return res.result, res.err
	case <-ctx.Done():
		return nil, errs.Wrap(errs.ErrKindTimeout, "rpc call abandoned", ctx.Err())
	}
}

// Shutdown terminates the child process and waits for the event loop to
// exit. Idempotent; a second call only waits.
func (p *Process) Shutdown() {
	p.once.Do(func() { close(p.shutdown) })
	<-p.done
}

// mapRPCError converts a JSON-RPC error envelope into a categorized error.
func mapRPCError(e *RPCError) error {
	switch e.Code {
	case CodeMethodNotFound, CodeUnsupported:
		return errs.New(errs.ErrKindUnsupported, e.Message)
	case CodeParseError, CodeInvalidRequest, CodeInvalidParams:
		return errs.New(errs.ErrKindInvalidInput, e.Message)
	case CodeConnectionFailed:
		return errs.New(errs.ErrKindConnection, e.Message)
	default:
		return errs.New(errs.ErrKindStatement, e.Message)
	}
}
