package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/catalog/internal/core/domain"
	"github.com/rl1809/catalog/internal/core/service"
)

const CatalogServiceName = "catalog.v1.CatalogService"

type GetStatsRequest struct{}

type GetStatsResponse struct {
	Stats domain.Stats `json:"stats"`
}

type ListItemsRequest struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Search string `json:"q"`
}

type ListItemsResponse struct {
	Page domain.ItemPage `json:"page"`
}

type GetItemRequest struct {
	ID int64 `json:"id"`
}

type GetItemResponse struct {
	Item domain.Item `json:"item"`
}

// CatalogServer is the gRPC surface of the catalog.
type CatalogServer interface {
	GetStats(context.Context, *GetStatsRequest) (*GetStatsResponse, error)
	ListItems(context.Context, *ListItemsRequest) (*ListItemsResponse, error)
	GetItem(context.Context, *GetItemRequest) (*GetItemResponse, error)
}

type GRPCHandler struct {
	catalog *service.CatalogService
}

func NewGRPCHandler(catalog *service.CatalogService) *GRPCHandler {
	return &GRPCHandler{catalog: catalog}
}

// RegisterCatalogServer attaches srv to s under CatalogServiceName.
func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&catalogServiceDesc, srv)
}

func (h *GRPCHandler) GetStats(ctx context.Context, req *GetStatsRequest) (*GetStatsResponse, error) {
	stats, err := h.catalog.Stats(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	return &GetStatsResponse{Stats: stats}, nil
}

func (h *GRPCHandler) ListItems(ctx context.Context, req *ListItemsRequest) (*ListItemsResponse, error) {
	page, err := h.catalog.ListItems(ctx, domain.ItemQuery{
		Page:   req.Page,
		Limit:  req.Limit,
		Search: req.Search,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return &ListItemsResponse{Page: page}, nil
}

func (h *GRPCHandler) GetItem(ctx context.Context, req *GetItemRequest) (*GetItemResponse, error) {
	item, err := h.catalog.GetItem(ctx, req.ID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &GetItemResponse{Item: item}, nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return status.Error(codes.NotFound, "item not found")
	case errors.Is(err, domain.ErrStoreNotFound):
		return status.Error(codes.Unavailable, "item store unavailable")
	case errors.Is(err, domain.ErrMalformedData):
		return status.Error(codes.DataLoss, "item store is malformed")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: CatalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStats", Handler: getStatsHandler},
		{MethodName: "ListItems", Handler: listItemsHandler},
		{MethodName: "GetItem", Handler: getItemHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func getStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetStatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).GetStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CatalogServiceName + "/GetStats"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).GetStats(ctx, req.(*GetStatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listItemsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListItemsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).ListItems(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CatalogServiceName + "/ListItems"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).ListItems(ctx, req.(*ListItemsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getItemHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetItemRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).GetItem(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CatalogServiceName + "/GetItem"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).GetItem(ctx, req.(*GetItemRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// LoggingInterceptor logs failed unary calls.
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		logGRPCError(info.FullMethod, err)
	}
	return resp, err
}
