package transport

import (
	"context"

	"github.com/lattice-raft/raft/raftpb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is one outbound connection to a peer's Server.
type Client struct {
	conn *grpc.ClientConn
}

// Dialer establishes a Client for a peer's address.
type Dialer func(ctx context.Context, addr string) (*Client, error)

// Dial is the default Dialer: a plaintext gRPC connection using the raw
// wire codec. Cluster traffic is expected to run over an already
// trusted network (spec explicitly excludes wire auth/encryption);
// embedders needing TLS supply their own Dialer via transport.Dialer.
func Dial(ctx context.Context, addr string) (*Client, error) {
	conn, err := grpc.DialContext(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rawCodec{})),
	)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Step sends msg to the peer and waits for it to be processed.
func (c *Client) Step(ctx context.Context, msg raftpb.Message) error {
	buf, err := raftpb.EncodeMessage(msg)
	if err != nil {
		return err
	}
	var out wireBytes
	return c.conn.Invoke(ctx, "/"+serviceName+"/"+stepMethod, wireBytes(buf), &out)
}

// Close tears down the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }
