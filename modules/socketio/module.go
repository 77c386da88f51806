// Package socketio sends build notifications over socket.io.
package socketio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/registry"
)

const defaultTimeout = 10 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the socketio_emit action. When AckEvent
// is set the action waits for that event and returns its payload.
type Input struct {
	URL                string `bggo:"url"`
	Namespace          string `bggo:"namespace,optional"`
	EmitEvent          string `bggo:"emit_event"`
	EmitData           any    `bggo:"emit_data,optional"`
	AckEvent           string `bggo:"ack_event,optional"`
	Timeout            string `bggo:"timeout,optional"`
	InsecureSkipVerify bool   `bggo:"insecure_skip_verify,optional"`
}

// Output defines the data structure returned by the action.
type Output struct {
	ResponseData any `mapstructure:"response_data"`
}

// opResult is a private struct to safely pass results through the done channel.
type opResult struct {
	value *Output
	err   error
}

// Emit connects, emits the event once connected and optionally waits for
// the acknowledgement event.
func Emit(ctx context.Context, _ *buildctx.Context, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("url", input.URL, "emitEvent", input.EmitEvent, "ackEvent", input.AckEvent)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	if input.EmitEvent == "" {
		return nil, errors.New("emit_event must not be empty")
	}
	timeout := defaultTimeout
	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
		timeout = d
	}
	parsedURL, err := url.Parse(input.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("url %q must be absolute", input.URL)
	}
	namespace := input.Namespace
	if namespace == "" {
		namespace = "/"
	}

	var isConnected atomic.Bool
	done := make(chan opResult, 1)
	report := func(r opResult) {
		select {
		case done <- r:
		default:
		}
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if input.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	if input.AckEvent != "" {
		io.On(types.EventName(input.AckEvent), func(data ...any) {
			var responseData any
			if len(data) > 0 {
				responseData = data[0]
			}
			report(opResult{value: &Output{ResponseData: responseData}})
		})
	}

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Info("Successfully connected", "namespace", namespace, "sid", io.Id())
		jsonData, _ := json.Marshal(input.EmitData)
		logger.Info("Emitting event", "data", string(jsonData))
		if err := io.Emit(input.EmitEvent, input.EmitData); err != nil {
			report(opResult{err: fmt.Errorf("failed to emit '%s': %w", input.EmitEvent, err)})
			return
		}
		if input.AckEvent == "" {
			report(opResult{value: &Output{}})
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connection refused")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		report(opResult{err: fmt.Errorf("socket.io connection failed: %w", err)})
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isConnected.Load() {
			return nil, fmt.Errorf("timed out after %v waiting for event '%s'", timeout, input.AckEvent)
		}
		return nil, fmt.Errorf("timed out after %v waiting for initial connection", timeout)
	case res := <-done:
		return res.value, res.err
	}
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("socketio_emit", registry.Typed("Emits a socket.io event.", Emit))
}
