package xds

import (
	"context"
	"sync"

	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	discoveryv3 "github.com/envoyproxy/go-control-plane/envoy/service/discovery/v3"
)

// NodeStatus is one node's last-known delivery status for one resource
// type, surfaced through internal/ops so operators can see whether a
// dataplane has actually applied the config it was sent, not just that
// the control plane pushed it.
type NodeStatus struct {
	NodeID      string
	TypeURL     string
	AckedVersion string
	NackedVersion string
	NackDetail  string
}

// StatusTracker implements cache.Callbacks, recording ACK/NACK state per
// (node, type URL) off of every DiscoveryRequest a proxy sends. A request
// carrying ErrorDetail is a NACK of the version it names; one without is
// an ACK of the previously sent version (or an initial subscription, in
// which case VersionInfo is empty and there is nothing to record).
type StatusTracker struct {
	mu       sync.Mutex
	streams  map[int64]*corev3.Node
	statuses map[string]*NodeStatus // key: nodeID + "/" + typeURL
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		streams:  make(map[int64]*corev3.Node),
		statuses: make(map[string]*NodeStatus),
	}
}

func statusKey(nodeID, typeURL string) string { return nodeID + "/" + typeURL }

func (t *StatusTracker) Statuses() []NodeStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]NodeStatus, 0, len(t.statuses))
	for _, s := range t.statuses {
		out = append(out, *s)
	}
	return out
}

func (t *StatusTracker) OnStreamOpen(context.Context, int64, string) error { return nil }

func (t *StatusTracker) OnStreamClosed(id int64, node *corev3.Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.streams, id)
}

func (t *StatusTracker) OnStreamRequest(id int64, req *discoveryv3.DiscoveryRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if req.Node != nil {
		t.streams[id] = req.Node
	}
	node := t.streams[id]
	if node == nil || req.TypeUrl == "" {
		return nil
	}
	if req.ErrorDetail == nil && req.ResponseNonce == "" {
		return nil
	}
	key := statusKey(node.Id, req.TypeUrl)
	s, ok := t.statuses[key]
	if !ok {
		s = &NodeStatus{NodeID: node.Id, TypeURL: req.TypeUrl}
		t.statuses[key] = s
	}
	if req.ErrorDetail != nil {
		s.NackedVersion = req.VersionInfo
		s.NackDetail = req.ErrorDetail.GetMessage()
	} else if req.ResponseNonce != "" {
		s.AckedVersion = req.VersionInfo
		s.NackedVersion = ""
		s.NackDetail = ""
	}
	return nil
}

func (t *StatusTracker) OnStreamResponse(context.Context, int64, *discoveryv3.DiscoveryRequest, *discoveryv3.DiscoveryResponse) {
}

func (t *StatusTracker) OnFetchRequest(context.Context, *discoveryv3.DiscoveryRequest) error {
	return nil
}

func (t *StatusTracker) OnFetchResponse(*discoveryv3.DiscoveryRequest, *discoveryv3.DiscoveryResponse) {
}

func (t *StatusTracker) OnDeltaStreamOpen(context.Context, int64, string) error { return nil }

func (t *StatusTracker) OnDeltaStreamClosed(id int64, node *corev3.Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.streams, id)
}

func (t *StatusTracker) OnStreamDeltaRequest(id int64, req *discoveryv3.DeltaDiscoveryRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if req.Node != nil {
		t.streams[id] = req.Node
	}
	node := t.streams[id]
	if node == nil || req.TypeUrl == "" {
		return nil
	}
	key := statusKey(node.Id, req.TypeUrl)
	s, ok := t.statuses[key]
	if !ok {
		s = &NodeStatus{NodeID: node.Id, TypeURL: req.TypeUrl}
		t.statuses[key] = s
	}
	if req.ErrorDetail != nil {
		s.NackDetail = req.ErrorDetail.GetMessage()
	}
	return nil
}

func (t *StatusTracker) OnStreamDeltaResponse(int64, *discoveryv3.DeltaDiscoveryRequest, *discoveryv3.DeltaDiscoveryResponse) {
}
