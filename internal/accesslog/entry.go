// Package accesslog implements C7's ingestion half: the ALS gRPC server
// Envoy streams HTTPAccessLogEntry batches to, and the bounded worker
// pool that matches each entry to an active learning session and feeds
// internal/schema's Aggregator. Grounded on
// original_source/src/services/access_log_processor.rs's worker-pool
// shape (tokio mpsc+watch), translated to the teacher's
// goroutine+channel+context.Done() idiom (the same shape the teacher's
// dropped Docker watcher used for its own event loop).
package accesslog

import "github.com/flowmesh/controlplane/internal/model"

// Entry is one normalized access-log record, extracted from the xDS
// protobuf wire shape into plain Go fields before it reaches the worker
// pool — keeps internal/schema free of any go-control-plane import.
type Entry struct {
	LearningSessionID model.LearningSessionID
	Method            string
	Path              string
	RequestBody       []byte
	ResponseStatus    int
	ResponseBody      []byte
}
