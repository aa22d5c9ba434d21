package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"drowsiness-detector-go/internal/detector"
	"drowsiness-detector-go/internal/service"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const maxMessageSize = 8 * 1024 * 1024

// Server реализация MonitorServer поверх MonitorService
type Server struct {
	monitor *service.MonitorService
	logger  *logrus.Logger
}

// NewServer создает gRPC обработчик
func NewServer(monitor *service.MonitorService, logger *logrus.Logger) *Server {
	return &Server{monitor: monitor, logger: logger}
}

// RegisterService регистрирует сервис мониторинга на gRPC сервере
func RegisterService(grpcServer *grpc.Server, server MonitorServer) {
	grpcServer.RegisterService(&ServiceDesc, server)
}

// NewGRPCServer создает gRPC сервер с сервисом мониторинга и health сервисом
func NewGRPCServer(monitor *service.MonitorService, logger *logrus.Logger) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMessageSize),
		grpc.MaxSendMsgSize(maxMessageSize),
		grpc.UnaryInterceptor(loggingInterceptor(logger)),
	)
	RegisterService(grpcServer, NewServer(monitor, logger))

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return grpcServer
}

func loggingInterceptor(logger *logrus.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := logger.WithFields(logrus.Fields{
			"method":   info.FullMethod,
			"duration": time.Since(start).String(),
			"code":     status.Code(err).String(),
		})
		if err != nil {
			entry.Warnf("gRPC вызов завершился ошибкой: %v", err)
		} else {
			entry.Debug("gRPC вызов")
		}
		return resp, err
	}
}

// toStatus переводит ошибку сервиса в gRPC статус
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		code = codes.NotFound
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, detector.ErrInvalidConfig):
		code = codes.InvalidArgument
	case errors.Is(err, detector.ErrNonMonotonicTime), errors.Is(err, detector.ErrEngineUnusable):
		code = codes.FailedPrecondition
	case errors.Is(err, service.ErrLandmarkService):
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// toStruct переводит ответ в Struct через его JSON представление
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// fromStruct разбирает Struct в запрос. Числа Struct хранятся как float64,
// целые поля вроде timestamp_ms точны до 2^53.
func fromStruct(in *structpb.Struct, out interface{}) error {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func sessionID(in *structpb.Struct) (string, error) {
	id := in.GetFields()["session_id"].GetStringValue()
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "session_id is required")
	}
	return id, nil
}

func (s *Server) StartSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	notes := in.GetFields()["notes"].GetStringValue()
	info, err := s.monitor.StartSession(ctx, notes)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(info)
}

func (s *Server) ProcessFrame(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionID(in)
	if err != nil {
		return nil, err
	}

	var req service.FrameRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("invalid frame: %v", err))
	}

	ts := req.Time(time.Now())
	resp, err := s.monitor.ProcessFrame(ctx, id, req.Sample(ts), ts)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(resp)
}

func (s *Server) GetSummary(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionID(in)
	if err != nil {
		return nil, err
	}
	summary, err := s.monitor.Summary(id)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(summary)
}

func (s *Server) StopSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionID(in)
	if err != nil {
		return nil, err
	}
	resp, err := s.monitor.StopSession(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(resp)
}
