package grpc

import (
	"context"
	"fmt"

	grpc2 "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client calls a KeyValueService.
type Client struct {
	conn *grpc2.ClientConn
}

// Dial connects to the KeyValueService at target. Extra options are applied after the defaults.
func Dial(target string, opts ...grpc2.DialOption) (*Client, error) {
	opts = append([]grpc2.DialOption{
		grpc2.WithTransportCredentials(insecure.NewCredentials()),
		grpc2.WithDefaultCallOptions(grpc2.CallContentSubtype(codecName)),
	}, opts...)
	conn, err := grpc2.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) GetRanges(ctx context.Context, in *GetRangesRequest) (*GetRangesResponse, error) {
	out := new(GetRangesResponse)
	if err := c.conn.Invoke(ctx, getRangesMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTableRanges(ctx context.Context, in *GetTableRangesRequest) (
	*GetTableRangesResponse, error) {
	out := new(GetTableRangesResponse)
	if err := c.conn.Invoke(ctx, getTableRangesMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// KeyValueService_ScanRangeClient receives the rows of a ScanRange call until io.EOF.
type KeyValueService_ScanRangeClient interface {
	Recv() (*ScanRangeResponse, error)
	grpc2.ClientStream
}

type scanRangeClient struct {
	grpc2.ClientStream
}

func (x *scanRangeClient) Recv() (*ScanRangeResponse, error) {
	m := new(ScanRangeResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ScanRange streams every row of a range, read at one timestamp.
func (c *Client) ScanRange(ctx context.Context, in *ScanRangeRequest) (
	KeyValueService_ScanRangeClient, error) {
	stream, err := c.conn.NewStream(ctx, &KeyValueServiceDesc.Streams[0], scanRangeMethod)
	if err != nil {
		return nil, err
	}
	x := &scanRangeClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *Client) GetRows(ctx context.Context, in *GetRowsRequest) (*GetRowsResponse, error) {
	out := new(GetRowsResponse)
	if err := c.conn.Invoke(ctx, getRowsMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTimestamps(ctx context.Context, in *GetTimestampsRequest) (
	*GetTimestampsResponse, error) {
	out := new(GetTimestampsResponse)
	if err := c.conn.Invoke(ctx, getTimestampsMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Put(ctx context.Context, in *PutRequest) (*PutResponse, error) {
	out := new(PutResponse)
	if err := c.conn.Invoke(ctx, putMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTable(ctx context.Context, in *CreateTableRequest) (*CreateTableResponse,
	error) {
	out := new(CreateTableResponse)
	if err := c.conn.Invoke(ctx, createTableMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Sweep(ctx context.Context, in *SweepRequest) (*SweepResponse, error) {
	out := new(SweepResponse)
	if err := c.conn.Invoke(ctx, sweepMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}
