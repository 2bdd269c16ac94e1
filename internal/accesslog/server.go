package accesslog

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	accesslogdatav3 "github.com/envoyproxy/go-control-plane/envoy/data/accesslog/v3"
	alsv3 "github.com/envoyproxy/go-control-plane/envoy/service/accesslog/v3"
	"google.golang.org/grpc"

	"github.com/flowmesh/controlplane/internal/model"
)

// Server implements the Access Log Service: Envoy opens one long-lived
// bidi stream per worker thread and pushes batches of HTTPAccessLogEntry
// for the lifetime of the connection. Every received entry is forwarded
// to WorkerPool.Submit; the stream never blocks on downstream processing.
type Server struct {
	alsv3.UnimplementedAccessLogServiceServer
	pool *WorkerPool
	log  *slog.Logger
}

func NewServer(pool *WorkerPool, log *slog.Logger) *Server {
	return &Server{pool: pool, log: log}
}

func (s *Server) StreamAccessLogs(stream alsv3.AccessLogService_StreamAccessLogsServer) error {
	var logName string
	for {
		msg, err := stream.Recv()
		if err != nil {
			return err
		}
		if id := msg.GetIdentifier(); id != nil && id.GetLogName() != "" {
			logName = id.GetLogName()
		}
		httpLogs := msg.GetHttpLogs()
		if httpLogs == nil {
			continue
		}
		for _, e := range httpLogs.GetLogEntry() {
			s.pool.Submit(toEntry(logName, e))
		}
	}
}

func toEntry(logName string, e *accesslogdatav3.HTTPAccessLogEntry) Entry {
	entry := Entry{LearningSessionID: model.LearningSessionID(logName)}
	if req := e.GetRequest(); req != nil {
		entry.Method = req.GetRequestMethod().String()
		entry.Path = req.GetPath()
	}
	if resp := e.GetResponse(); resp != nil {
		entry.ResponseStatus = int(resp.GetResponseCode().GetValue())
	}
	return entry
}

// Serve starts the gRPC ALS server on addr and blocks until ctx is
// canceled or the listener errors.
func Serve(ctx context.Context, addr string, pool *WorkerPool, log *slog.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("accesslog: listening on %s: %w", addr, err)
	}
	grpcServer := grpc.NewServer()
	alsv3.RegisterAccessLogServiceServer(grpcServer, NewServer(pool, log))
	log.Info("access log server listening", "addr", addr)

	go func() {
		<-ctx.Done()
		log.Info("shutting down access log server")
		grpcServer.GracefulStop()
	}()

	return grpcServer.Serve(lis)
}
