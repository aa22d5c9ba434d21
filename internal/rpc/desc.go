package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName полное имя gRPC сервиса мониторинга
const ServiceName = "drowsiness.v1.Monitor"

// MonitorServer методы gRPC сервиса. Запросы и ответы передаются как
// google.protobuf.Struct с теми же полями, что и в HTTP API.
type MonitorServer interface {
	StartSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ProcessFrame(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetSummary(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	StopSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(MonitorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodHandler(name string, call unaryMethod) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MonitorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(MonitorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc описание сервиса для grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MonitorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartSession", Handler: methodHandler("StartSession", MonitorServer.StartSession)},
		{MethodName: "ProcessFrame", Handler: methodHandler("ProcessFrame", MonitorServer.ProcessFrame)},
		{MethodName: "GetSummary", Handler: methodHandler("GetSummary", MonitorServer.GetSummary)},
		{MethodName: "StopSession", Handler: methodHandler("StopSession", MonitorServer.StopSession)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "drowsiness/v1/monitor.proto",
}

// FullMethod полное имя метода для вызова через grpc.ClientConn.Invoke
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}
