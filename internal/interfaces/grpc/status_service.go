package grpc

import (
	"context"
	"fmt"
	"time"

	stdgrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
)

// RunStatus describes one simulation run's current progress: the Go-native
// analogue of the heartbeat file the original implementation writes to disk.
type RunStatus struct {
	RunID     string
	Iteration int64
	Location  string
	UpdatedAt time.Time
}

// CheckpointSummary is one entry returned by ListCheckpoints.
type CheckpointSummary struct {
	RunID     string
	Iteration int64
	Location  string
	CreatedAt time.Time
}

// StatusProvider is implemented by whatever component tracks run progress
// and checkpoint history — in this repository, the checkpoint catalog (C15).
type StatusProvider interface {
	RunStatus(ctx context.Context, runID string) (RunStatus, error)
	ListCheckpoints(ctx context.Context, runID string) ([]CheckpointSummary, error)
}

// StatusService implements the status surface described for C21:
// GetRunStatus and ListCheckpoints. It is wired by hand into a grpc.Server
// (rather than generated from a .proto file) and carries its payloads as
// google.protobuf.Struct, a stable well-known type, so no codegen step is
// required to keep request/response wire types in sync.
type StatusService struct {
	provider StatusProvider
	logger   logging.Logger
}

// NewStatusService constructs a StatusService backed by provider.
func NewStatusService(provider StatusProvider, logger logging.Logger) *StatusService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &StatusService{provider: provider, logger: logger}
}

// GetRunStatus returns the current progress of the run named by the
// "run_id" field of req.
func (s *StatusService) GetRunStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID, err := requireStringField(req, "run_id")
	if err != nil {
		return nil, err
	}

	rs, err := s.provider.RunStatus(ctx, runID)
	if err != nil {
		s.logger.Warn("get run status failed", logging.String("run_id", runID), logging.Err(err))
		return nil, grpcstatus.Errorf(codes.NotFound, "run %q: %v", runID, err)
	}

	out, err := structpb.NewStruct(map[string]interface{}{
		"run_id":     rs.RunID,
		"iteration":  float64(rs.Iteration),
		"location":   rs.Location,
		"updated_at": rs.UpdatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode run status: %v", err)
	}
	return out, nil
}

// ListCheckpoints returns every checkpoint recorded for the run named by the
// "run_id" field of req, as a Struct with a "checkpoints" list field.
func (s *StatusService) ListCheckpoints(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID, err := requireStringField(req, "run_id")
	if err != nil {
		return nil, err
	}

	checkpoints, err := s.provider.ListCheckpoints(ctx, runID)
	if err != nil {
		s.logger.Warn("list checkpoints failed", logging.String("run_id", runID), logging.Err(err))
		return nil, grpcstatus.Errorf(codes.Internal, "list checkpoints for %q: %v", runID, err)
	}

	items := make([]interface{}, len(checkpoints))
	for i, cp := range checkpoints {
		items[i] = map[string]interface{}{
			"run_id":     cp.RunID,
			"iteration":  float64(cp.Iteration),
			"location":   cp.Location,
			"created_at": cp.CreatedAt.Format(time.RFC3339Nano),
		}
	}

	out, err := structpb.NewStruct(map[string]interface{}{
		"run_id":      runID,
		"checkpoints": items,
	})
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode checkpoint list: %v", err)
	}
	return out, nil
}

func requireStringField(req *structpb.Struct, key string) (string, error) {
	if req == nil {
		return "", grpcstatus.Errorf(codes.InvalidArgument, "request must not be empty")
	}
	v, ok := req.Fields[key]
	if !ok || v.GetStringValue() == "" {
		return "", grpcstatus.Errorf(codes.InvalidArgument, "%q is required", key)
	}
	return v.GetStringValue(), nil
}

// StatusServiceName is the fully-qualified service name under which
// StatusService is registered with the grpc.Server.
const StatusServiceName = "dissolve.v1.StatusService"

// statusServiceDesc describes StatusService's RPCs in the same shape a
// protoc-gen-go-grpc-generated ServiceDesc would take.
var statusServiceDesc = stdgrpc.ServiceDesc{
	ServiceName: StatusServiceName,
	HandlerType: (*StatusService)(nil),
	Methods: []stdgrpc.MethodDesc{
		{MethodName: "GetRunStatus", Handler: statusServiceGetRunStatusHandler},
		{MethodName: "ListCheckpoints", Handler: statusServiceListCheckpointsHandler},
	},
	Streams:  []stdgrpc.StreamDesc{},
	Metadata: "status_service",
}

func statusServiceGetRunStatusHandler(
	srv interface{},
	ctx context.Context,
	dec func(interface{}) error,
	interceptor stdgrpc.UnaryServerInterceptor,
) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*StatusService).GetRunStatus(ctx, in)
	}
	info := &stdgrpc.UnaryServerInfo{Server: srv, FullMethod: fmt.Sprintf("/%s/GetRunStatus", StatusServiceName)}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*StatusService).GetRunStatus(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func statusServiceListCheckpointsHandler(
	srv interface{},
	ctx context.Context,
	dec func(interface{}) error,
	interceptor stdgrpc.UnaryServerInterceptor,
) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*StatusService).ListCheckpoints(ctx, in)
	}
	info := &stdgrpc.UnaryServerInfo{Server: srv, FullMethod: fmt.Sprintf("/%s/ListCheckpoints", StatusServiceName)}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*StatusService).ListCheckpoints(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterStatusService registers svc with server under StatusServiceName.
func RegisterStatusService(server *Server, svc *StatusService) {
	server.RegisterService(&statusServiceDesc, svc)
}
