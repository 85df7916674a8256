package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GRPCServer adapts Server's command surface to unary gRPC calls, matching
// the teacher's pattern of a thin grpc.ServiceDesc wrapper around a plain Go
// service object (see components/*/client.go, services/slam/builtin for the
// shape, though those are generated from go.viam.com/api; voxblox has no
// such proto module to generate from, so the ServiceDesc below is
// hand-written in the same shape protoc-gen-go-grpc would produce).
type GRPCServer struct {
	svc *Server
}

// NewGRPCServer wraps svc for registration on a *grpc.Server.
func NewGRPCServer(svc *Server) *GRPCServer {
	return &GRPCServer{svc: svc}
}

// RegisterVoxbloxServiceServer registers srv's command surface on s.
func RegisterVoxbloxServiceServer(s grpc.ServiceRegistrar, srv *GRPCServer) {
	s.RegisterService(&voxbloxServiceDesc, srv)
}

func (s *GRPCServer) clearMap(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.svc.ClearMap()
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) generateMesh(ctx context.Context, req *wrapperspb.BoolValue) (*emptypb.Empty, error) {
	s.svc.GenerateMesh(req.GetValue())
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) saveMap(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := s.svc.SaveMap(req.GetValue()); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) loadMap(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := s.svc.LoadMap(req.GetValue()); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) publishMap(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.svc.PublishMap()
	return &emptypb.Empty{}, nil
}

// publishPointclouds triggers extraction and publish on the pointcloud
// topic and reports the number of points published; the cloud itself is
// delivered to subscribers of s.svc.PointcloudTopic, not in this response.
func (s *GRPCServer) publishPointclouds(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	cloud := s.svc.PublishPointclouds()
	return wrapperspb.Int64(int64(cloud.Len())), nil
}

var voxbloxServiceDesc = grpc.ServiceDesc{
	ServiceName: "voxblox.v1.VoxbloxService",
	HandlerType: (*GRPCServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ClearMap", Handler: _VoxbloxService_ClearMap_Handler},
		{MethodName: "GenerateMesh", Handler: _VoxbloxService_GenerateMesh_Handler},
		{MethodName: "SaveMap", Handler: _VoxbloxService_SaveMap_Handler},
		{MethodName: "LoadMap", Handler: _VoxbloxService_LoadMap_Handler},
		{MethodName: "PublishMap", Handler: _VoxbloxService_PublishMap_Handler},
		{MethodName: "PublishPointclouds", Handler: _VoxbloxService_PublishPointclouds_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "voxblox/v1/voxblox.proto",
}

func _VoxbloxService_ClearMap_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*GRPCServer).clearMap(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/voxblox.v1.VoxbloxService/ClearMap"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*GRPCServer).clearMap(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _VoxbloxService_GenerateMesh_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BoolValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*GRPCServer).generateMesh(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/voxblox.v1.VoxbloxService/GenerateMesh"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*GRPCServer).generateMesh(ctx, req.(*wrapperspb.BoolValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _VoxbloxService_SaveMap_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*GRPCServer).saveMap(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/voxblox.v1.VoxbloxService/SaveMap"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*GRPCServer).saveMap(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _VoxbloxService_LoadMap_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*GRPCServer).loadMap(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/voxblox.v1.VoxbloxService/LoadMap"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*GRPCServer).loadMap(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _VoxbloxService_PublishMap_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*GRPCServer).publishMap(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/voxblox.v1.VoxbloxService/PublishMap"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*GRPCServer).publishMap(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _VoxbloxService_PublishPointclouds_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*GRPCServer).publishPointclouds(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/voxblox.v1.VoxbloxService/PublishPointclouds"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*GRPCServer).publishPointclouds(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
