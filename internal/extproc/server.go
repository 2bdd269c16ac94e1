// Package extproc implements C7's ADD'd body-capture half: an
// ExternalProcessor gRPC service Envoy calls into from listeners whose
// HCM carries an ExtProc filter, in BUFFERED mode (whole body available
// before the request/response continues). The resource builder does not
// add that filter for learning sessions with CaptureBody set; it is
// present only where an ExtProc filter is attached like any other.
// Fail-open: every message read, empty body included, gets an unmodified
// (continue) response, and a timeout or receive error ends the stream
// without an error, so a broken sidecar never blocks real traffic,
// grounded in original_source/src/services/access_log_processor.rs's
// framing of body capture as strictly additive to the core ALS pipeline.
package extproc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"google.golang.org/grpc"

	"github.com/flowmesh/controlplane/internal/accesslog"
	"github.com/flowmesh/controlplane/internal/model"
)

// MaxBufferedBody caps how much body content is accepted per message,
// matching spec.md 4.7's BUFFERED-mode limit: learning-session capture
// is for schema shape inference, not an arbitrary payload mirror.
const MaxBufferedBody = 10 * 1024

// MessageTimeout bounds how long the stream waits for Envoy to send the
// next ProcessingRequest before giving up. It is longer than the 50ms
// default message_timeout that internal/filters' buildExtProc sets on the
// ext_proc HTTP filter, so with that default Envoy gives up first.
const MessageTimeout = 200 * time.Millisecond

// Server implements ExternalProcessorServer.Process. Each call is one
// bidi stream scoped to a single HTTP request/response pair; per-message
// metadata (session ID) arrives as a request header set by the data
// plane, the same correlation mechanism internal/accesslog's ALS path
// uses via log_name.
type Server struct {
	extprocv3.UnimplementedExternalProcessorServer
	pool *accesslog.WorkerPool
	log  *slog.Logger
}

func NewServer(pool *accesslog.WorkerPool, log *slog.Logger) *Server {
	return &Server{pool: pool, log: log}
}

// SessionHeader is the request header the resource builder's ext_proc
// config is expected to forward (via ProcessingMode header capture) so
// this server can correlate a capture to its learning session without a
// second round trip to the store.
const SessionHeader = "x-envoyage-learning-session"

func (s *Server) Process(stream extprocv3.ExternalProcessor_ProcessServer) error {
	var entry accesslog.Entry
	for {
		req, err := s.recvWithTimeout(stream)
		if err != nil {
			return nil // fail-open: end the stream cleanly, Envoy proceeds unmodified
		}
		if req == nil {
			return nil
		}

		resp := &extprocv3.ProcessingResponse{}
		switch v := req.Request.(type) {
		case *extprocv3.ProcessingRequest_RequestHeaders:
			entry.LearningSessionID = model.LearningSessionID(headerValue(v.RequestHeaders.GetHeaders(), SessionHeader))
			resp.Response = &extprocv3.ProcessingResponse_RequestHeaders{RequestHeaders: &extprocv3.HeadersResponse{}}
		case *extprocv3.ProcessingRequest_RequestBody:
			entry.RequestBody = truncate(v.RequestBody.GetBody())
			resp.Response = &extprocv3.ProcessingResponse_RequestBody{RequestBody: &extprocv3.BodyResponse{}}
		case *extprocv3.ProcessingRequest_ResponseHeaders:
			resp.Response = &extprocv3.ProcessingResponse_ResponseHeaders{ResponseHeaders: &extprocv3.HeadersResponse{}}
			if status := headerValue(v.ResponseHeaders.GetHeaders(), ":status"); status != "" {
				entry.ResponseStatus = atoiSafe(status)
			}
		case *extprocv3.ProcessingRequest_ResponseBody:
			entry.ResponseBody = truncate(v.ResponseBody.GetBody())
			resp.Response = &extprocv3.ProcessingResponse_ResponseBody{ResponseBody: &extprocv3.BodyResponse{}}
			if entry.LearningSessionID != "" {
				s.pool.Submit(entry)
			}
		case *extprocv3.ProcessingRequest_RequestTrailers:
			resp.Response = &extprocv3.ProcessingResponse_RequestTrailers{RequestTrailers: &extprocv3.TrailersResponse{}}
		case *extprocv3.ProcessingRequest_ResponseTrailers:
			resp.Response = &extprocv3.ProcessingResponse_ResponseTrailers{ResponseTrailers: &extprocv3.TrailersResponse{}}
		}

		if err := stream.Send(resp); err != nil {
			return nil
		}
	}
}

func (s *Server) recvWithTimeout(stream extprocv3.ExternalProcessor_ProcessServer) (*extprocv3.ProcessingRequest, error) {
	type result struct {
		req *extprocv3.ProcessingRequest
		err error
	}
	ch := make(chan result, 1)
	go func() {
		req, err := stream.Recv()
		ch <- result{req, err}
	}()

	select {
	case r := <-ch:
		return r.req, r.err
	case <-time.After(MessageTimeout):
		s.log.Debug("extproc message timed out, failing open")
		return nil, context.DeadlineExceeded
	}
}

func headerValue(headerMap *corev3.HeaderMap, name string) string {
	if headerMap == nil {
		return ""
	}
	for _, h := range headerMap.GetHeaders() {
		if h.GetKey() == name {
			if v := h.GetValue(); v != "" {
				return v
			}
			return string(h.GetRawValue())
		}
	}
	return ""
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func truncate(b []byte) []byte {
	if len(b) > MaxBufferedBody {
		return b[:MaxBufferedBody]
	}
	return b
}

// Serve starts the gRPC ExternalProcessor server on addr and blocks
// until ctx is canceled or the listener errors.
func Serve(ctx context.Context, addr string, pool *accesslog.WorkerPool, log *slog.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("extproc: listening on %s: %w", addr, err)
	}
	grpcServer := grpc.NewServer()
	extprocv3.RegisterExternalProcessorServer(grpcServer, NewServer(pool, log))
	log.Info("ext_proc server listening", "addr", addr)

	go func() {
		<-ctx.Done()
		log.Info("shutting down ext_proc server")
		grpcServer.GracefulStop()
	}()

	return grpcServer.Serve(lis)
}
