package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"animetracker/internal/auth"
	"animetracker/internal/watchlist"
)

// Server exposes the watchlist ledger to gRPC clients. Every call must carry
// a bearer token in the authorization metadata key.
type Server struct {
	ledger *watchlist.Ledger
	logger *slog.Logger
}

func NewServer(ledger *watchlist.Ledger, logger *slog.Logger) *Server {
	return &Server{ledger: ledger, logger: logger}
}

// NewGRPCServer builds a grpc.Server with logging and authentication
// interceptors and srv registered on it.
func NewGRPCServer(srv *Server, signer *auth.Signer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(
		logUnary(srv.logger),
		authUnary(signer),
	))
	s := grpc.NewServer(opts...)
	RegisterWatchlistServer(s, srv)
	return s
}

func (s *Server) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	caller, _ := auth.FromContext(ctx)
	if req.UserID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "user_id must be a positive integer")
	}
	items, err := s.ledger.List(ctx, caller, req.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListResponse{Watchlist: items}, nil
}

func (s *Server) Create(ctx context.Context, req *CreateRequest) (*CreateResponse, error) {
	caller, _ := auth.FromContext(ctx)
	if req.ShowID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "show_id must be a positive integer")
	}
	id, err := s.ledger.Create(ctx, caller, req.ShowID, req.Status)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CreateResponse{ID: id}, nil
}

func (s *Server) Update(ctx context.Context, req *UpdateRequest) (*ChangesResponse, error) {
	caller, _ := auth.FromContext(ctx)
	n, err := s.ledger.Update(ctx, caller, req.ID, watchlist.Changes{
		Status:   req.Status,
		Progress: req.Progress,
		Rating:   req.Rating,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ChangesResponse{Changes: n}, nil
}

func (s *Server) Delete(ctx context.Context, req *DeleteRequest) (*ChangesResponse, error) {
	caller, _ := auth.FromContext(ctx)
	n, err := s.ledger.Delete(ctx, caller, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ChangesResponse{Changes: n}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, watchlist.ErrForbidden):
		return status.Error(codes.PermissionDenied, watchlist.ErrForbidden.Error())
	case errors.Is(err, watchlist.ErrConflict):
		return status.Error(codes.Aborted, watchlist.ErrConflict.Error())
	case errors.Is(err, watchlist.ErrInvalidEntry), errors.Is(err, watchlist.ErrInvalidReference):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func authUnary(signer *auth.Signer) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		var header string
		if v := md.Get("authorization"); len(v) > 0 {
			header = v[0]
		}
		token, err := auth.BearerToken(header)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, auth.ErrMissingToken.Error())
		}
		id, err := signer.Parse(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, auth.ErrInvalidToken.Error())
		}
		return handler(auth.WithIdentity(ctx, id), req)
	}
}

func logUnary(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		level := slog.LevelInfo
		if code == codes.Internal || code == codes.Unknown {
			level = slog.LevelError
		} else if code != codes.OK {
			level = slog.LevelWarn
		}
		logger.LogAttrs(ctx, level, "grpc request",
			slog.String("method", info.FullMethod),
			slog.String("code", code.String()),
			slog.Duration("latency", time.Since(start)),
		)
		return resp, err
	}
}
