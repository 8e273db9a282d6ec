package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "possync.v1.SyncService"

// Full method names, as seen by interceptors.
const (
	MethodPing          = "/" + ServiceName + "/Ping"
	MethodLogin         = "/" + ServiceName + "/Login"
	MethodCheckShop     = "/" + ServiceName + "/CheckShop"
	MethodListShops     = "/" + ServiceName + "/ListShops"
	MethodUpsertProduct = "/" + ServiceName + "/UpsertProduct"
	MethodRemovePrice   = "/" + ServiceName + "/RemovePrice"
	MethodQueryDelta    = "/" + ServiceName + "/QueryDelta"
	MethodListAllIDs    = "/" + ServiceName + "/ListAllIDs"
	MethodFindByBarcode = "/" + ServiceName + "/FindByBarcode"
	MethodAppendSale    = "/" + ServiceName + "/AppendSale"
	MethodQuerySales    = "/" + ServiceName + "/QuerySales"
)

// SyncServiceServer is implemented by the remote catalog server.
type SyncServiceServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	CheckShop(context.Context, *CheckShopRequest) (*CheckShopResponse, error)
	ListShops(context.Context, *ListShopsRequest) (*ListShopsResponse, error)
	UpsertProduct(context.Context, *UpsertProductRequest) (*UpsertProductResponse, error)
	RemovePrice(context.Context, *RemovePriceRequest) (*RemovePriceResponse, error)
	QueryDelta(context.Context, *QueryDeltaRequest) (*QueryDeltaResponse, error)
	ListAllIDs(context.Context, *ListAllIDsRequest) (*ListAllIDsResponse, error)
	FindByBarcode(context.Context, *FindByBarcodeRequest) (*FindByBarcodeResponse, error)
	AppendSale(context.Context, *AppendSaleRequest) (*AppendSaleResponse, error)
	QuerySales(context.Context, *QuerySalesRequest) (*QuerySalesResponse, error)
}

// UnimplementedSyncServiceServer answers every method with codes.Unimplemented.
// Embed it to keep server types forward compatible.
type UnimplementedSyncServiceServer struct{}

func unimplemented(m string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", m)
}

func (UnimplementedSyncServiceServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, unimplemented("Ping")
}
func (UnimplementedSyncServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, unimplemented("Login")
}
func (UnimplementedSyncServiceServer) CheckShop(context.Context, *CheckShopRequest) (*CheckShopResponse, error) {
	return nil, unimplemented("CheckShop")
}
func (UnimplementedSyncServiceServer) ListShops(context.Context, *ListShopsRequest) (*ListShopsResponse, error) {
	return nil, unimplemented("ListShops")
}
func (UnimplementedSyncServiceServer) UpsertProduct(context.Context, *UpsertProductRequest) (*UpsertProductResponse, error) {
	return nil, unimplemented("UpsertProduct")
}
func (UnimplementedSyncServiceServer) RemovePrice(context.Context, *RemovePriceRequest) (*RemovePriceResponse, error) {
	return nil, unimplemented("RemovePrice")
}
func (UnimplementedSyncServiceServer) QueryDelta(context.Context, *QueryDeltaRequest) (*QueryDeltaResponse, error) {
	return nil, unimplemented("QueryDelta")
}
func (UnimplementedSyncServiceServer) ListAllIDs(context.Context, *ListAllIDsRequest) (*ListAllIDsResponse, error) {
	return nil, unimplemented("ListAllIDs")
}
func (UnimplementedSyncServiceServer) FindByBarcode(context.Context, *FindByBarcodeRequest) (*FindByBarcodeResponse, error) {
	return nil, unimplemented("FindByBarcode")
}
func (UnimplementedSyncServiceServer) AppendSale(context.Context, *AppendSaleRequest) (*AppendSaleResponse, error) {
	return nil, unimplemented("AppendSale")
}
func (UnimplementedSyncServiceServer) QuerySales(context.Context, *QuerySalesRequest) (*QuerySalesResponse, error) {
	return nil, unimplemented("QuerySales")
}

// unary builds the method descriptor for one server method.
func unary[Req, Resp any](name string, call func(SyncServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SyncServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SyncServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes possync.v1.SyncService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", SyncServiceServer.Ping),
		unary("Login", SyncServiceServer.Login),
		unary("CheckShop", SyncServiceServer.CheckShop),
		unary("ListShops", SyncServiceServer.ListShops),
		unary("UpsertProduct", SyncServiceServer.UpsertProduct),
		unary("RemovePrice", SyncServiceServer.RemovePrice),
		unary("QueryDelta", SyncServiceServer.QueryDelta),
		unary("ListAllIDs", SyncServiceServer.ListAllIDs),
		unary("FindByBarcode", SyncServiceServer.FindByBarcode),
		unary("AppendSale", SyncServiceServer.AppendSale),
		unary("QuerySales", SyncServiceServer.QuerySales),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "possync/v1/sync.json",
}

func RegisterSyncServiceServer(s grpc.ServiceRegistrar, srv SyncServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// SyncServiceClient is the client API of possync.v1.SyncService.
type SyncServiceClient interface {
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	CheckShop(ctx context.Context, in *CheckShopRequest, opts ...grpc.CallOption) (*CheckShopResponse, error)
	ListShops(ctx context.Context, in *ListShopsRequest, opts ...grpc.CallOption) (*ListShopsResponse, error)
	UpsertProduct(ctx context.Context, in *UpsertProductRequest, opts ...grpc.CallOption) (*UpsertProductResponse, error)
	RemovePrice(ctx context.Context, in *RemovePriceRequest, opts ...grpc.CallOption) (*RemovePriceResponse, error)
	QueryDelta(ctx context.Context, in *QueryDeltaRequest, opts ...grpc.CallOption) (*QueryDeltaResponse, error)
	ListAllIDs(ctx context.Context, in *ListAllIDsRequest, opts ...grpc.CallOption) (*ListAllIDsResponse, error)
	FindByBarcode(ctx context.Context, in *FindByBarcodeRequest, opts ...grpc.CallOption) (*FindByBarcodeResponse, error)
	AppendSale(ctx context.Context, in *AppendSaleRequest, opts ...grpc.CallOption) (*AppendSaleResponse, error)
	QuerySales(ctx context.Context, in *QuerySalesRequest, opts ...grpc.CallOption) (*QuerySalesResponse, error)
}

type syncServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSyncServiceClient(cc grpc.ClientConnInterface) SyncServiceClient {
	return &syncServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *syncServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}
func (c *syncServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, MethodLogin, in, opts)
}
func (c *syncServiceClient) CheckShop(ctx context.Context, in *CheckShopRequest, opts ...grpc.CallOption) (*CheckShopResponse, error) {
	return invoke[CheckShopResponse](ctx, c.cc, MethodCheckShop, in, opts)
}
func (c *syncServiceClient) ListShops(ctx context.Context, in *ListShopsRequest, opts ...grpc.CallOption) (*ListShopsResponse, error) {
	return invoke[ListShopsResponse](ctx, c.cc, MethodListShops, in, opts)
}
func (c *syncServiceClient) UpsertProduct(ctx context.Context, in *UpsertProductRequest, opts ...grpc.CallOption) (*UpsertProductResponse, error) {
	return invoke[UpsertProductResponse](ctx, c.cc, MethodUpsertProduct, in, opts)
}
func (c *syncServiceClient) RemovePrice(ctx context.Context, in *RemovePriceRequest, opts ...grpc.CallOption) (*RemovePriceResponse, error) {
	return invoke[RemovePriceResponse](ctx, c.cc, MethodRemovePrice, in, opts)
}
func (c *syncServiceClient) QueryDelta(ctx context.Context, in *QueryDeltaRequest, opts ...grpc.CallOption) (*QueryDeltaResponse, error) {
	return invoke[QueryDeltaResponse](ctx, c.cc, MethodQueryDelta, in, opts)
}
func (c *syncServiceClient) ListAllIDs(ctx context.Context, in *ListAllIDsRequest, opts ...grpc.CallOption) (*ListAllIDsResponse, error) {
	return invoke[ListAllIDsResponse](ctx, c.cc, MethodListAllIDs, in, opts)
}
func (c *syncServiceClient) FindByBarcode(ctx context.Context, in *FindByBarcodeRequest, opts ...grpc.CallOption) (*FindByBarcodeResponse, error) {
	return invoke[FindByBarcodeResponse](ctx, c.cc, MethodFindByBarcode, in, opts)
}
func (c *syncServiceClient) AppendSale(ctx context.Context, in *AppendSaleRequest, opts ...grpc.CallOption) (*AppendSaleResponse, error) {
	return invoke[AppendSaleResponse](ctx, c.cc, MethodAppendSale, in, opts)
}
func (c *syncServiceClient) QuerySales(ctx context.Context, in *QuerySalesRequest, opts ...grpc.CallOption) (*QuerySalesResponse, error) {
	return invoke[QuerySalesResponse](ctx, c.cc, MethodQuerySales, in, opts)
}
