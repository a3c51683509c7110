package transport

import (
	"context"
	"net"

	"github.com/lattice-raft/raft/raftpb"
	"google.golang.org/grpc"
)

const (
	serviceName = "raft.Transport"
	stepMethod  = "Step"
)

// Handler processes one Message received from a peer.
type Handler func(ctx context.Context, msg raftpb.Message) error

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: stepMethod, Handler: stepHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "transport/service.go",
}

func stepHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in wireBytes
	if err := dec(&in); err != nil {
		return nil, err
	}
	handle := srv.(Handler)
	run := func(ctx context.Context, req interface{}) (interface{}, error) {
		msg, err := raftpb.DecodeMessageBytes(req.(wireBytes))
		if err != nil {
			return nil, err
		}
		if err := handle(ctx, msg); err != nil {
			return nil, err
		}
		return wireBytes(nil), nil
	}
	if interceptor == nil {
		return run(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + stepMethod}
	return interceptor(ctx, in, info, run)
}

// Server accepts Step RPCs from peers and dispatches each decoded
// Message to handle.
type Server struct {
	grpc *grpc.Server
}

// NewServer builds a gRPC server wired to handle, using the raw wire
// codec instead of a protobuf-generated one.
func NewServer(handle Handler, opts ...grpc.ServerOption) *Server {
	opts = append([]grpc.ServerOption{grpc.ForceServerCodec(rawCodec{})}, opts...)
	s := grpc.NewServer(opts...)
	s.RegisterService(&serviceDesc, handle)
	return &Server{grpc: s}
}

// Serve blocks, accepting connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error { return s.grpc.Serve(lis) }

// Stop gracefully stops the server, waiting for in-flight Steps to
// finish.
func (s *Server) Stop() { s.grpc.GracefulStop() }
