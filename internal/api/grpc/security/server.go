package security

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/engine"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
)

// Engine abstracts the engine operations the transport layer depends on.
type Engine interface {
	Snapshot() domain.Snapshot
	RequestTargetMode(ctx context.Context, mode domain.Mode, opts ...engine.RequestOption) error
	SetDelayArming(ctx context.Context, enabled bool) error
	SetSirenActive(ctx context.Context, active bool) error
	SensorTriggered(ctx context.Context, active bool) error
	Trigger(ctx context.Context) error
}

// Server implements the SecuritySystem gRPC API.
type Server struct {
	// engine provides the state transitions.
	engine Engine
	// armDelay is the delay-arming override applied to target requests.
	armDelay bool
}

// NewServer wires the provided engine into a gRPC handler. armDelay decides
// whether target requests made through the API honour the arm delay.
func NewServer(eng Engine, armDelay bool) *Server {
	return &Server{
		engine:   eng,
		armDelay: armDelay,
	}
}

// GetState returns the current state.
func (s *Server) GetState(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return ToStruct(s.engine.Snapshot()), nil
}

// SetTargetMode requests a new target mode.
func (s *Server) SetTargetMode(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	mode, err := domain.ParseMode(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}

	logger.InfoKV(ctx, "Target mode requested", "mode", mode, "actor", ActorFromContext(ctx))

	err = s.engine.RequestTargetMode(ctx, mode, engine.WithRemoteUpdate(), engine.WithArmDelay(s.armDelay))
	if err != nil {
		return nil, toStatus(err)
	}

	return ToStruct(s.engine.Snapshot()), nil
}

// SetDelayArming toggles the arm delay.
func (s *Server) SetDelayArming(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error) {
	if err := s.engine.SetDelayArming(ctx, req.GetValue()); err != nil {
		return nil, toStatus(err)
	}

	return ToStruct(s.engine.Snapshot()), nil
}

// SetSirenActive writes the siren-active property.
func (s *Server) SetSirenActive(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error) {
	if err := s.engine.SetSirenActive(ctx, req.GetValue()); err != nil {
		return nil, toStatus(err)
	}

	return ToStruct(s.engine.Snapshot()), nil
}

// ReportSensor reports a sensor becoming active or inactive.
func (s *Server) ReportSensor(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error) {
	if err := s.engine.SensorTriggered(ctx, req.GetValue()); err != nil {
		return nil, toStatus(err)
	}

	return ToStruct(s.engine.Snapshot()), nil
}

// Trigger sounds the alarm immediately.
func (s *Server) Trigger(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	logger.InfoKV(ctx, "Alarm trigger requested", "actor", ActorFromContext(ctx))

	if err := s.engine.Trigger(ctx); err != nil {
		return nil, toStatus(err)
	}

	return ToStruct(s.engine.Snapshot()), nil
}

// toStatus maps engine errors to gRPC status errors.
func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidMode), errors.Is(err, domain.ErrDisabledTarget):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotArmed), errors.Is(err, domain.ErrNotYetArmed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, engine.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
