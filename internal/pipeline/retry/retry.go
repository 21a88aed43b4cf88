package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	evmrpc "github.com/emperorhan/priority-fee-monitor/internal/chain/evm/rpc"
)

type Class string

const (
	ClassTerminal  Class = "terminal"
	ClassTransient Class = "transient"
)

// Decision is the outcome of classifying an error. Reason is a short
// snake_case label suitable for logs and metric labels.
type Decision struct {
	Class  Class
	Reason string
}

func (d Decision) IsTransient() bool {
	return d.Class == ClassTransient
}

func transient(reason string) Decision { return Decision{Class: ClassTransient, Reason: reason} }
func terminal(reason string) Decision  { return Decision{Class: ClassTerminal, Reason: reason} }

type classifiedError struct {
	err      error
	decision Decision
}

func (e *classifiedError) Error() string { return e.err.Error() }
func (e *classifiedError) Unwrap() error { return e.err }

// Transient marks err as worth retrying regardless of its content.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, decision: transient("explicit_transient")}
}

// Terminal marks err as final regardless of its content.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, decision: terminal("explicit_terminal")}
}

// rules are tried in order; the first that recognises the error decides.
var rules = []func(error) (Decision, bool){
	classifyMarked,
	classifyContext,
	classifyNodeError,
	classifySidecarStatus,
	classifyNetwork,
	classifyMessage,
}

// Classify decides whether err, returned by the node, the forecast sidecar or
// a store, is worth retrying. Unrecognised errors are terminal.
func Classify(err error) Decision {
	if err == nil {
		return terminal("nil_error")
	}
	for _, rule := range rules {
		if d, ok := rule(err); ok {
			return d
		}
	}
	return terminal("unknown_terminal_default")
}

func classifyMarked(err error) (Decision, bool) {
	var marked *classifiedError
	if errors.As(err, &marked) {
		return marked.decision, true
	}
	return Decision{}, false
}

func classifyContext(err error) (Decision, bool) {
	switch {
	case errors.Is(err, context.Canceled):
		return terminal("context_canceled"), true
	case errors.Is(err, context.DeadlineExceeded):
		return transient("context_deadline_exceeded"), true
	}
	return Decision{}, false
}

// classifyNodeError handles JSON-RPC and HTTP failures from the chain node.
// Load-balanced providers answer -32000 "header not found" while a backend
// lags the head; that resolves on retry.
func classifyNodeError(err error) (Decision, bool) {
	var rpcErr *evmrpc.RPCError
	if errors.As(err, &rpcErr) {
		switch {
		case rpcErr.Code == -32603 || rpcErr.Code == -32005:
			return transient("jsonrpc_server_transient"), true
		case rpcErr.Code <= -32000 && rpcErr.Code >= -32099:
			return transient("jsonrpc_server_range"), true
		default:
			return terminal("jsonrpc_terminal"), true
		}
	}

	var httpErr *evmrpc.HTTPStatusError
	if errors.As(err, &httpErr) {
		code := httpErr.StatusCode
		reason := fmt.Sprintf("http_%d", code)
		if code == 429 || code == 408 || code >= 500 {
			return transient(reason), true
		}
		return terminal(reason), true
	}
	return Decision{}, false
}

// classifySidecarStatus handles gRPC status errors from the forecast sidecar.
func classifySidecarStatus(err error) (Decision, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return Decision{}, false
	}
	reason := "grpc_" + strings.ToLower(st.Code().String())
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
		return transient(reason), true
	default:
		return terminal(reason), true
	}
}

func classifyNetwork(err error) (Decision, bool) {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return transient("net_timeout"), true
	}
	return Decision{}, false
}

func classifyMessage(err error) (Decision, bool) {
	msg := strings.ToLower(err.Error())
	for _, token := range terminalMessageTokens {
		if strings.Contains(msg, token) {
			return terminal("message_terminal"), true
		}
	}
	for _, token := range transientMessageTokens {
		if strings.Contains(msg, token) {
			return transient("message_transient"), true
		}
	}
	return Decision{}, false
}

var transientMessageTokens = []string{
	"timeout",
	"timed out",
	"temporar",
	"unavailable",
	"connection reset",
	"connection refused",
	"broken pipe",
	"eof",
	"too many requests",
	"rate limit",
	"header not found",
	"server closed idle connection",
	"too many clients",
}

var terminalMessageTokens = []string{
	"invalid argument",
	"invalid params",
	"method not found",
	"parse error",
	"unsupported chain",
	"constraint violation",
}
