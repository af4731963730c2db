package security

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "securitysystem.v1.SecuritySystem"

// Full method names.
const (
	MethodGetState       = "/" + ServiceName + "/GetState"
	MethodSetTargetMode  = "/" + ServiceName + "/SetTargetMode"
	MethodSetDelayArming = "/" + ServiceName + "/SetDelayArming"
	MethodSetSirenActive = "/" + ServiceName + "/SetSirenActive"
	MethodReportSensor   = "/" + ServiceName + "/ReportSensor"
	MethodTrigger        = "/" + ServiceName + "/Trigger"
)

// SecuritySystemServer is the server API of the security system service.
type SecuritySystemServer interface {
	GetState(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	SetTargetMode(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	SetDelayArming(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error)
	SetSirenActive(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error)
	ReportSensor(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error)
	Trigger(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterSecuritySystemServer registers srv on s.
func RegisterSecuritySystemServer(s grpc.ServiceRegistrar, srv SecuritySystemServer) {
	s.RegisterService(&serviceDesc, srv)
}

//nolint:gochecknoglobals // Service descriptor handed to grpc.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SecuritySystemServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetState", Handler: unaryHandler(MethodGetState, SecuritySystemServer.GetState)},
		{MethodName: "SetTargetMode", Handler: unaryHandler(MethodSetTargetMode, SecuritySystemServer.SetTargetMode)},
		{MethodName: "SetDelayArming", Handler: unaryHandler(MethodSetDelayArming, SecuritySystemServer.SetDelayArming)},
		{MethodName: "SetSirenActive", Handler: unaryHandler(MethodSetSirenActive, SecuritySystemServer.SetSirenActive)},
		{MethodName: "ReportSensor", Handler: unaryHandler(MethodReportSensor, SecuritySystemServer.ReportSensor)},
		{MethodName: "Trigger", Handler: unaryHandler(MethodTrigger, SecuritySystemServer.Trigger)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "securitysystem/v1/security_system.proto",
}

// request is the set of request messages used by the service.
type request interface {
	*emptypb.Empty | *wrapperspb.StringValue | *wrapperspb.BoolValue
}

// unaryHandler adapts a typed server method to a grpc.MethodDesc handler.
func unaryHandler[Req request](
	fullMethod string,
	method func(SecuritySystemServer, context.Context, Req) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newMessage[Req]()
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return method(srv.(SecuritySystemServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return method(srv.(SecuritySystemServer), ctx, req.(Req))
		}

		return interceptor(ctx, in, info, handler)
	}
}

// newMessage allocates an empty request message.
func newMessage[Req request]() Req {
	var in any

	var zero Req
	switch any(zero).(type) {
	case *emptypb.Empty:
		in = new(emptypb.Empty)
	case *wrapperspb.StringValue:
		in = new(wrapperspb.StringValue)
	case *wrapperspb.BoolValue:
		in = new(wrapperspb.BoolValue)
	}

	return in.(Req)
}

// SecuritySystemClient is the client API of the security system service.
type SecuritySystemClient interface {
	GetState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetTargetMode(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetDelayArming(ctx context.Context, in *wrapperspb.BoolValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetSirenActive(ctx context.Context, in *wrapperspb.BoolValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	ReportSensor(ctx context.Context, in *wrapperspb.BoolValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Trigger(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type securitySystemClient struct {
	cc grpc.ClientConnInterface
}

// NewSecuritySystemClient creates a client on cc.
func NewSecuritySystemClient(cc grpc.ClientConnInterface) SecuritySystemClient {
	return &securitySystemClient{cc: cc}
}

func (c *securitySystemClient) invoke(ctx context.Context, method string, in any, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *securitySystemClient) GetState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetState, in, opts)
}

func (c *securitySystemClient) SetTargetMode(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSetTargetMode, in, opts)
}

func (c *securitySystemClient) SetDelayArming(ctx context.Context, in *wrapperspb.BoolValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSetDelayArming, in, opts)
}

func (c *securitySystemClient) SetSirenActive(ctx context.Context, in *wrapperspb.BoolValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSetSirenActive, in, opts)
}

func (c *securitySystemClient) ReportSensor(ctx context.Context, in *wrapperspb.BoolValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodReportSensor, in, opts)
}

func (c *securitySystemClient) Trigger(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodTrigger, in, opts)
}
