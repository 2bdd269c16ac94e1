package filters

import (
	xdstype "github.com/cncf/xds/go/xds/type/v3"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
)

// dynamicHTTPFilterPrefix namespaces schema-driven filter type names so
// they never collide with the statically known envoy.filters.http.*
// names in model.filterRegistry.
const dynamicHTTPFilterPrefix = "envoy.filters.http.dynamic."

// toDynamicAny builds a generic xds.type.v3.TypedStruct Any for a filter
// type with no compiled-in converter (model.FilterMCP today). Before
// being wrapped, the spec is validated against the schema registered
// under the emitted HTTP filter name (dynamicHTTPFilterPrefix+type, or
// the metadata name for MCP), if one is registered under that name.
// Schemas that LoadSchemaDir registers under the bare filter type name
// are applied at write time by internal/ops, not here.
func (c *Converter) toDynamicAny(ft model.FilterType, spec map[string]any) (string, *anypb.Any, error) {
	name := dynamicHTTPFilterPrefix + string(ft)
	if ft == model.FilterMCP {
		if meta, ok := ft.Metadata(); ok {
			name = meta.HTTPFilterName
		}
	}
	if c.schemas != nil {
		if err := c.schemas.Validate(name, spec); err != nil {
			return "", nil, apierr.Wrap(apierr.Validation, "filter", string(ft), err)
		}
	}
	st, err := structpb.NewStruct(spec)
	if err != nil {
		return "", nil, apierr.Validationf("filter", "spec", "spec cannot be represented as a protobuf Struct: %v", err)
	}
	typed := &xdstype.TypedStruct{
		TypeUrl: "type.googleapis.com/" + name,
		Value:   st,
	}
	any, err := anypb.New(typed)
	if err != nil {
		return "", nil, apierr.Wrap(apierr.Internal, "filter", string(ft), err)
	}
	return name, any, nil
}
