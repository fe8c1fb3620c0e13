package grpc

import (
	"context"

	"google.golang.org/grpc"

	"animetracker/internal/watchlist"
)

const serviceName = "animetracker.Watchlist"

type ListRequest struct {
	UserID int64 `json:"user_id"`
}

type ListResponse struct {
	Watchlist []watchlist.Item `json:"watchlist"`
}

type CreateRequest struct {
	ShowID int64  `json:"show_id"`
	Status string `json:"status"`
}

type CreateResponse struct {
	ID int64 `json:"id"`
}

type UpdateRequest struct {
	ID       int64   `json:"id"`
	Status   string  `json:"status"`
	Progress int     `json:"progress"`
	Rating   *int    `json:"rating"`
	Notes    *string `json:"notes"`
}

type DeleteRequest struct {
	ID int64 `json:"id"`
}

type ChangesResponse struct {
	Changes int64 `json:"changes"`
}

// WatchlistServer is the ledger exposed over gRPC.
type WatchlistServer interface {
	List(context.Context, *ListRequest) (*ListResponse, error)
	Create(context.Context, *CreateRequest) (*CreateResponse, error)
	Update(context.Context, *UpdateRequest) (*ChangesResponse, error)
	Delete(context.Context, *DeleteRequest) (*ChangesResponse, error)
}

func RegisterWatchlistServer(s grpc.ServiceRegistrar, srv WatchlistServer) {
	s.RegisterService(&watchlistServiceDesc, srv)
}

var watchlistServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*WatchlistServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "List",
			Handler: unary("List", func(s WatchlistServer, ctx context.Context, in *ListRequest) (any, error) {
				return s.List(ctx, in)
			}),
		},
		{
			MethodName: "Create",
			Handler: unary("Create", func(s WatchlistServer, ctx context.Context, in *CreateRequest) (any, error) {
				return s.Create(ctx, in)
			}),
		},
		{
			MethodName: "Update",
			Handler: unary("Update", func(s WatchlistServer, ctx context.Context, in *UpdateRequest) (any, error) {
				return s.Update(ctx, in)
			}),
		},
		{
			MethodName: "Delete",
			Handler: unary("Delete", func(s WatchlistServer, ctx context.Context, in *DeleteRequest) (any, error) {
				return s.Delete(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "animetracker/watchlist",
}

// unary adapts a typed method into a grpc.MethodHandler.
func unary[Req any](method string, call func(WatchlistServer, context.Context, *Req) (any, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(WatchlistServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(WatchlistServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// WatchlistClient calls a remote WatchlistServer with the JSON codec.
type WatchlistClient struct {
	cc grpc.ClientConnInterface
}

func NewWatchlistClient(cc grpc.ClientConnInterface) *WatchlistClient {
	return &WatchlistClient{cc: cc}
}

func (c *WatchlistClient) List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	out := new(ListResponse)
	return out, c.invoke(ctx, "List", in, out, opts)
}

func (c *WatchlistClient) Create(ctx context.Context, in *CreateRequest, opts ...grpc.CallOption) (*CreateResponse, error) {
	out := new(CreateResponse)
	return out, c.invoke(ctx, "Create", in, out, opts)
}

func (c *WatchlistClient) Update(ctx context.Context, in *UpdateRequest, opts ...grpc.CallOption) (*ChangesResponse, error) {
	out := new(ChangesResponse)
	return out, c.invoke(ctx, "Update", in, out, opts)
}

func (c *WatchlistClient) Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*ChangesResponse, error) {
	out := new(ChangesResponse)
	return out, c.invoke(ctx, "Delete", in, out, opts)
}

func (c *WatchlistClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}
