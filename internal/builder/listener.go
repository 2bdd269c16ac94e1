package builder

import (
	"fmt"

	accesslogv3 "github.com/envoyproxy/go-control-plane/envoy/config/accesslog/v3"
	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	listenerv3 "github.com/envoyproxy/go-control-plane/envoy/config/listener/v3"
	grpcaccesslogv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/access_loggers/grpc/v3"
	hcmv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/network/http_connection_manager/v3"
	routerv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/http/router/v3"
	tcpproxyv3 "github.com/envoyproxy/go-control-plane/envoy/extensions/filters/network/tcp_proxy/v3"
	"github.com/envoyproxy/go-control-plane/pkg/wellknown"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/flowmesh/controlplane/internal/filters"
	"github.com/flowmesh/controlplane/internal/model"
)

// AccessLogClusterName is the static cluster internal/bootstrap seeds
// pointing at this control plane's own ALS gRPC sink (internal/accesslog).
// HCMs with AccessLogConfig.Enabled reference it so captured entries
// reach the learning pipeline.
const AccessLogClusterName = "access_log_sink"

// BuildListener converts a stored Listener into its LDS resource.
// conv builds each HTTPFilterRef's typed config; filtersByID resolves the
// FilterID each ref carries. Router is appended last in every HCM, always
// enabled, matching the teacher's makeHTTPListener.
func BuildListener(l *model.Listener, conv *filters.Converter, filtersByID map[model.FilterID]*model.Filter) (*listenerv3.Listener, error) {
	chains := make([]*listenerv3.FilterChain, 0, len(l.Spec.FilterChains))
	for _, fc := range l.Spec.FilterChains {
		built, err := buildFilterChain(fc, conv, filtersByID)
		if err != nil {
			return nil, fmt.Errorf("builder: listener %q: %w", l.Name, err)
		}
		chains = append(chains, built)
	}
	return &listenerv3.Listener{
		Name:         l.Name,
		Address:      listenerAddress(l),
		FilterChains: chains,
	}, nil
}

func listenerAddress(l *model.Listener) *corev3.Address {
	proto := corev3.SocketAddress_TCP
	if l.Protocol == model.ListenerUDP {
		proto = corev3.SocketAddress_UDP
	}
	return &corev3.Address{
		Address: &corev3.Address_SocketAddress{
			SocketAddress: &corev3.SocketAddress{
				Protocol:      proto,
				Address:       l.Address,
				PortSpecifier: &corev3.SocketAddress_PortValue{PortValue: l.Port},
			},
		},
	}
}

func buildFilterChain(fc model.FilterChain, conv *filters.Converter, filtersByID map[model.FilterID]*model.Filter) (*listenerv3.FilterChain, error) {
	out := &listenerv3.FilterChain{}
	if fc.TLS != nil {
		out.TransportSocket = &corev3.TransportSocket{Name: "envoy.transport_sockets.tls"}
		_ = fc.TLS.SDSSecretName // certificate material lives behind the secret store, wired at deploy time
	}
	for _, nf := range fc.Filters {
		built, err := buildNetworkFilter(nf, conv, filtersByID)
		if err != nil {
			return nil, err
		}
		out.Filters = append(out.Filters, built)
	}
	return out, nil
}

func buildNetworkFilter(nf model.NetworkFilter, conv *filters.Converter, filtersByID map[model.FilterID]*model.Filter) (*listenerv3.Filter, error) {
	switch nf.Kind {
	case model.NetworkFilterTCPProxy:
		tcpAny, err := anypb.New(&tcpproxyv3.TcpProxy{
			StatPrefix: "tcp_" + nf.TCPProxyCluster,
			ClusterSpecifier: &tcpproxyv3.TcpProxy_Cluster{Cluster: nf.TCPProxyCluster},
		})
		if err != nil {
			return nil, fmt.Errorf("marshaling tcp_proxy: %w", err)
		}
		return &listenerv3.Filter{
			Name:       wellknown.TCPProxy,
			ConfigType: &listenerv3.Filter_TypedConfig{TypedConfig: tcpAny},
		}, nil
	default:
		hcmAny, err := buildHCM(nf.HCM, conv, filtersByID)
		if err != nil {
			return nil, err
		}
		return &listenerv3.Filter{
			Name:       wellknown.HTTPConnectionManager,
			ConfigType: &listenerv3.Filter_TypedConfig{TypedConfig: hcmAny},
		}, nil
	}
}

func buildHCM(h *model.HTTPConnectionManager, conv *filters.Converter, filtersByID map[model.FilterID]*model.Filter) (*anypb.Any, error) {
	httpFilters := make([]*hcmv3.HttpFilter, 0, len(h.HTTPFilters)+1)
	for _, ref := range h.HTTPFilters {
		f, ok := filtersByID[ref.FilterID]
		if !ok {
			return nil, fmt.Errorf("hcm references unknown filter %q", ref.FilterID)
		}
		name, cfgAny, err := conv.ToListenerAny(f.FilterType, f.Spec)
		if err != nil {
			return nil, fmt.Errorf("converting listener filter %q: %w", f.Name, err)
		}
		httpFilters = append(httpFilters, &hcmv3.HttpFilter{
			Name:       name,
			ConfigType: &hcmv3.HttpFilter_TypedConfig{TypedConfig: cfgAny},
		})
	}
	routerAny, err := anypb.New(&routerv3.Router{})
	if err != nil {
		return nil, fmt.Errorf("marshaling router config: %w", err)
	}
	httpFilters = append(httpFilters, &hcmv3.HttpFilter{
		Name:       wellknown.Router,
		ConfigType: &hcmv3.HttpFilter_TypedConfig{TypedConfig: routerAny},
	})

	mgr := &hcmv3.HttpConnectionManager{
		StatPrefix:  "ingress_http",
		HttpFilters: httpFilters,
	}
	if h.AccessLog.Enabled {
		logConfig, err := buildAccessLog(h.AccessLog)
		if err != nil {
			return nil, err
		}
		mgr.AccessLog = []*accesslogv3.AccessLog{logConfig}
	}
	if h.InlineRouteConfig != nil {
		rc := &model.RouteConfig{Name: "inline", Spec: *h.InlineRouteConfig}
		routeConfig, err := BuildRouteConfig(rc, nil, conv)
		if err != nil {
			return nil, fmt.Errorf("building inline route config: %w", err)
		}
		mgr.RouteSpecifier = &hcmv3.HttpConnectionManager_RouteConfig{RouteConfig: routeConfig}
	} else {
		mgr.RouteSpecifier = &hcmv3.HttpConnectionManager_Rds{
			Rds: &hcmv3.Rds{
				ConfigSource: &corev3.ConfigSource{
					ConfigSourceSpecifier: &corev3.ConfigSource_Ads{Ads: &corev3.AggregatedConfigSource{}},
					ResourceApiVersion:    corev3.ApiVersion_V3,
				},
				RouteConfigName: h.RouteConfigName,
			},
		}
	}

	any, err := anypb.New(mgr)
	if err != nil {
		return nil, fmt.Errorf("marshaling hcm: %w", err)
	}
	return any, nil
}

// buildAccessLog wires the HCM's AccessLogConfig to a gRPC ALS sink.
// LogName carries the learning session ID: internal/accesslog reads
// StreamAccessLogsMessage.Identifier.LogName back out to correlate each
// streamed entry to the session that requested capture.
func buildAccessLog(cfg model.AccessLogConfig) (*accesslogv3.AccessLog, error) {
	logName := ""
	if cfg.LearningSessionID != nil {
		logName = string(*cfg.LearningSessionID)
	}
	grpcConfig := &grpcaccesslogv3.HttpGrpcAccessLogConfig{
		CommonConfig: &grpcaccesslogv3.CommonGrpcAccessLogConfig{
			LogName: logName,
			GrpcService: &corev3.GrpcService{
				TargetSpecifier: &corev3.GrpcService_EnvoyGrpc_{
					EnvoyGrpc: &corev3.GrpcService_EnvoyGrpc{ClusterName: AccessLogClusterName},
				},
			},
		},
	}
	any, err := anypb.New(grpcConfig)
	if err != nil {
		return nil, fmt.Errorf("marshaling access log config: %w", err)
	}
	return &accesslogv3.AccessLog{
		Name:       "envoy.access_loggers.http_grpc",
		ConfigType: &accesslogv3.AccessLog_TypedConfig{TypedConfig: any},
	}, nil
}
