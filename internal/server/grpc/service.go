package grpc

import (
	"context"

	grpc2 "google.golang.org/grpc"
)

const (
	serviceName = "litetable.kvs.KeyValueService"

	getRangesMethod      = "/" + serviceName + "/GetRanges"
	getTableRangesMethod = "/" + serviceName + "/GetTableRanges"
	scanRangeMethod      = "/" + serviceName + "/ScanRange"
	getRowsMethod        = "/" + serviceName + "/GetRows"
	getTimestampsMethod  = "/" + serviceName + "/GetTimestamps"
	putMethod            = "/" + serviceName + "/Put"
	createTableMethod    = "/" + serviceName + "/CreateTable"
	sweepMethod          = "/" + serviceName + "/Sweep"
)

// KeyValueServer is the server API for the KeyValueService.
type KeyValueServer interface {
	GetRanges(ctx context.Context, req *GetRangesRequest) (*GetRangesResponse, error)
	GetTableRanges(ctx context.Context, req *GetTableRangesRequest) (*GetTableRangesResponse,
		error)
	ScanRange(req *ScanRangeRequest, stream KeyValueService_ScanRangeServer) error
	GetRows(ctx context.Context, req *GetRowsRequest) (*GetRowsResponse, error)
	GetTimestamps(ctx context.Context, req *GetTimestampsRequest) (*GetTimestampsResponse, error)
	Put(ctx context.Context, req *PutRequest) (*PutResponse, error)
	CreateTable(ctx context.Context, req *CreateTableRequest) (*CreateTableResponse, error)
	Sweep(ctx context.Context, req *SweepRequest) (*SweepResponse, error)
}

// KeyValueService_ScanRangeServer sends the rows of a ScanRange call.
type KeyValueService_ScanRangeServer interface {
	Send(*ScanRangeResponse) error
	grpc2.ServerStream
}

type scanRangeServer struct {
	grpc2.ServerStream
}

func (x *scanRangeServer) Send(m *ScanRangeResponse) error {
	return x.ServerStream.SendMsg(m)
}

// KeyValueServiceDesc describes the KeyValueService for grpc.Server.RegisterService.
var KeyValueServiceDesc = grpc2.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*KeyValueServer)(nil),
	Methods: []grpc2.MethodDesc{
		{MethodName: "GetRanges", Handler: getRangesHandler},
		{MethodName: "GetTableRanges", Handler: getTableRangesHandler},
		{MethodName: "GetRows", Handler: getRowsHandler},
		{MethodName: "GetTimestamps", Handler: getTimestampsHandler},
		{MethodName: "Put", Handler: putHandler},
		{MethodName: "CreateTable", Handler: createTableHandler},
		{MethodName: "Sweep", Handler: sweepHandler},
	},
	Streams: []grpc2.StreamDesc{
		{StreamName: "ScanRange", Handler: scanRangeHandler, ServerStreams: true},
	},
	Metadata: "litetable/kvs.json",
}

// RegisterKeyValueServer registers srv on s.
func RegisterKeyValueServer(s grpc2.ServiceRegistrar, srv KeyValueServer) {
	s.RegisterService(&KeyValueServiceDesc, srv)
}

func getRangesHandler(srv any, ctx context.Context, dec func(any) error,
	interceptor grpc2.UnaryServerInterceptor) (any, error) {
	in := new(GetRangesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyValueServer).GetRanges(ctx, in)
	}
	info := &grpc2.UnaryServerInfo{Server: srv, FullMethod: getRangesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeyValueServer).GetRanges(ctx, req.(*GetRangesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getRowsHandler(srv any, ctx context.Context, dec func(any) error,
	interceptor grpc2.UnaryServerInterceptor) (any, error) {
	in := new(GetRowsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyValueServer).GetRows(ctx, in)
	}
	info := &grpc2.UnaryServerInfo{Server: srv, FullMethod: getRowsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeyValueServer).GetRows(ctx, req.(*GetRowsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func putHandler(srv any, ctx context.Context, dec func(any) error,
	interceptor grpc2.UnaryServerInterceptor) (any, error) {
	in := new(PutRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyValueServer).Put(ctx, in)
	}
	info := &grpc2.UnaryServerInfo{Server: srv, FullMethod: putMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeyValueServer).Put(ctx, req.(*PutRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func createTableHandler(srv any, ctx context.Context, dec func(any) error,
	interceptor grpc2.UnaryServerInterceptor) (any, error) {
	in := new(CreateTableRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyValueServer).CreateTable(ctx, in)
	}
	info := &grpc2.UnaryServerInfo{Server: srv, FullMethod: createTableMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeyValueServer).CreateTable(ctx, req.(*CreateTableRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getTableRangesHandler(srv any, ctx context.Context, dec func(any) error,
	interceptor grpc2.UnaryServerInterceptor) (any, error) {
	in := new(GetTableRangesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyValueServer).GetTableRanges(ctx, in)
	}
	info := &grpc2.UnaryServerInfo{Server: srv, FullMethod: getTableRangesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeyValueServer).GetTableRanges(ctx, req.(*GetTableRangesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getTimestampsHandler(srv any, ctx context.Context, dec func(any) error,
	interceptor grpc2.UnaryServerInterceptor) (any, error) {
	in := new(GetTimestampsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyValueServer).GetTimestamps(ctx, in)
	}
	info := &grpc2.UnaryServerInfo{Server: srv, FullMethod: getTimestampsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeyValueServer).GetTimestamps(ctx, req.(*GetTimestampsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func sweepHandler(srv any, ctx context.Context, dec func(any) error,
	interceptor grpc2.UnaryServerInterceptor) (any, error) {
	in := new(SweepRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KeyValueServer).Sweep(ctx, in)
	}
	info := &grpc2.UnaryServerInfo{Server: srv, FullMethod: sweepMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeyValueServer).Sweep(ctx, req.(*SweepRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func scanRangeHandler(srv any, stream grpc2.ServerStream) error {
	in := new(ScanRangeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(KeyValueServer).ScanRange(in, &scanRangeServer{stream})
}
