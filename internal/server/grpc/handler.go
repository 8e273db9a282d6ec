package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/possync/internal/api"
	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/server/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus translates backend errors into gRPC status errors. Anything not in
// the taxonomy is logged and reported as Internal.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrAuthorization), errors.Is(err, common.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrItemWrite):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, common.ErrDataIntegrity):
		return status.Error(codes.DataLoss, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case common.IsConnectivity(err):
		return status.Error(codes.Unavailable, "backend unavailable")
	}
	s.logger.Error(ctx, "request failed", "err", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) Ping(ctx context.Context, req *api.PingRequest) (*api.PingResponse, error) {
	if err := s.store.Ping(ctx); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.PingResponse{Status: api.PingStatusOK}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {

	shop, err := s.store.VerifyShop(ctx, req.Shop, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrAuthorization) {
			s.logger.Warn(ctx, "login rejected", "shop", req.Shop)
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}
		return nil, s.toStatus(ctx, err)
	}

	token, err := auth.GenerateToken(shop.Name, s.jwtSecret, s.tokenValidity)
	if err != nil {
		s.logger.Error(ctx, "token generation failed", "err", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	s.logger.Info(ctx, "shop logged in", "shop", shop.Name)
	return &api.LoginResponse{AccessToken: token}, nil
}

func (s *GRPCServer) CheckShop(ctx context.Context, req *api.CheckShopRequest) (*api.CheckShopResponse, error) {
	name := req.Shop
	if name == "" {
		name, _ = shopFromContext(ctx)
	}
	shop, err := s.store.CheckShop(ctx, name)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.CheckShopResponse{Shop: *shop}, nil
}

func (s *GRPCServer) ListShops(ctx context.Context, req *api.ListShopsRequest) (*api.ListShopsResponse, error) {
	names, err := s.store.ListShops(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.ListShopsResponse{Shops: names}, nil
}

func (s *GRPCServer) UpsertProduct(ctx context.Context, req *api.UpsertProductRequest) (*api.UpsertProductResponse, error) {
	rev, err := s.store.UpsertProduct(ctx, req.ProductID, req.Shop, req.Fields, req.Price)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.UpsertProductResponse{Revision: rev}, nil
}

func (s *GRPCServer) RemovePrice(ctx context.Context, req *api.RemovePriceRequest) (*api.RemovePriceResponse, error) {
	shop := req.Shop
	if shop == "" {
		shop, _ = shopFromContext(ctx)
	}
	if err := s.store.RemovePrice(ctx, req.ProductID, shop); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.RemovePriceResponse{}, nil
}

func (s *GRPCServer) QueryDelta(ctx context.Context, req *api.QueryDeltaRequest) (*api.QueryDeltaResponse, error) {
	products, err := s.store.QueryDelta(ctx, req.Shop, req.Since)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.QueryDeltaResponse{Products: products}, nil
}

func (s *GRPCServer) ListAllIDs(ctx context.Context, req *api.ListAllIDsRequest) (*api.ListAllIDsResponse, error) {
	keys, err := s.store.ListAllIDs(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.ListAllIDsResponse{Keys: keys}, nil
}

func (s *GRPCServer) FindByBarcode(ctx context.Context, req *api.FindByBarcodeRequest) (*api.FindByBarcodeResponse, error) {
	products, err := s.store.FindByBarcode(ctx, req.Barcode)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.FindByBarcodeResponse{Products: products}, nil
}

func (s *GRPCServer) AppendSale(ctx context.Context, req *api.AppendSaleRequest) (*api.AppendSaleResponse, error) {
	shop := req.Shop
	if shop == "" {
		shop, _ = shopFromContext(ctx)
	}
	if err := s.store.AppendSale(ctx, shop, req.Sale); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.AppendSaleResponse{}, nil
}

func (s *GRPCServer) QuerySales(ctx context.Context, req *api.QuerySalesRequest) (*api.QuerySalesResponse, error) {
	sales, err := s.store.QuerySales(ctx, req.Shop, req.Limit, req.NewestFirst)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.QuerySalesResponse{Sales: sales}, nil
}
