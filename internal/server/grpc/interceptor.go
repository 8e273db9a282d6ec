package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/possync/internal/api"
	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/metrics"
	"github.com/dmitrijs2005/possync/internal/server/auth"
	"github.com/dmitrijs2005/possync/internal/tracing"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const shopKey ctxKey = "shop"

// publicMethods need no access token.
var publicMethods = map[string]bool{
	api.MethodPing:      true,
	api.MethodLogin:     true,
	api.MethodListShops: true,
}

// shopFromContext returns the shop of the authenticated caller.
func shopFromContext(ctx context.Context) (string, bool) {
	shop, ok := ctx.Value(shopKey).(string)
	return shop, ok && shop != ""
}

// requestShop returns the shop a shop-scoped request acts on.
func requestShop(req any) (string, bool) {
	switch r := req.(type) {
	case *api.UpsertProductRequest:
		return r.Shop, true
	case *api.RemovePriceRequest:
		return r.Shop, true
	case *api.AppendSaleRequest:
		return r.Shop, true
	case *api.CheckShopRequest:
		return r.Shop, true
	}
	return "", false
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	shop, err := auth.GetShopFromToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	if target, scoped := requestShop(req); scoped && target != "" && target != shop {
		return nil, status.Errorf(codes.PermissionDenied, "token is not valid for shop %q", target)
	}

	ctx = context.WithValue(ctx, shopKey, shop)
	return handler(ctx, req)
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	metrics.RPCRequestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
	metrics.RPCDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
	return resp, err
}

func (s *GRPCServer) tracingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ctx, span := tracing.Tracer("possync/server").Start(ctx, info.FullMethod, trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	resp, err := handler(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, status.Code(err).String())
	}
	return resp, err
}
