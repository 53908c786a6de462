package grpcserver

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"storyhub/internal/auth"
	"storyhub/internal/content"
	"storyhub/internal/domain"
	"storyhub/pkg/logger"
	"storyhub/pkg/models"
)

// Server exposes the catalog over gRPC. Tokens and Blocks are optional; with both
// set, a bearer token in the "authorization" metadata personalizes results the
// same way the HTTP API does.
type Server struct {
	Content *content.Service
	Tokens  *auth.TokenService
	Blocks  content.BlocklistSource
}

func NewServer(svc *content.Service, tokens *auth.TokenService, blocks content.BlocklistSource) *Server {
	return &Server{Content: svc, Tokens: tokens, Blocks: blocks}
}

func (s *Server) ListContents(ctx context.Context, req *ListContentsRequest) (*ListContentsResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	f, err := content.ParseFilter(url.Values(req.Params))
	if err != nil {
		return nil, toStatus(err)
	}
	if f, err = s.personalize(ctx, f); err != nil {
		return nil, err
	}

	page, err := s.Content.FetchPage(ctx, f)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListContentsResponse{
		Items:   page.Items,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: page.HasMore,
	}, nil
}

func (s *Server) GetContent(ctx context.Context, req *GetContentRequest) (*GetContentResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	kind, ok := models.ParseKind(req.Type)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "type: must be webtoon or novel")
	}

	f, err := s.personalize(ctx, content.Filter{ShowAdultContent: req.ShowAdultContent})
	if err != nil {
		return nil, err
	}
	item, err := s.Content.Get(ctx, kind, req.ID, f)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetContentResponse{Item: item}, nil
}

func (s *Server) personalize(ctx context.Context, f content.Filter) (content.Filter, error) {
	if s.Tokens == nil || s.Blocks == nil {
		return f, nil
	}
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return f, nil
	}
	raw, ok := strings.CutPrefix(vals[0], "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return f, status.Error(codes.Unauthenticated, "invalid authorization metadata")
	}
	claims, err := s.Tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		return f, status.Error(codes.Unauthenticated, "invalid token")
	}

	b, err := s.Blocks.Blocklist(ctx, claims.UserID)
	if err != nil {
		return f, toStatus(err)
	}
	b.ShowAdultContent = b.ShowAdultContent && claims.AdultVerified
	return content.ApplyBlocklist(f, b), nil
}

// toStatus maps domain errors onto gRPC codes. Storage details stay server side.
func toStatus(err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Error())
	case domain.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		logger.Module("grpc").WithError(err).Error("request failed")
		return status.Error(codes.Internal, "storage failure")
	}
}

// LoggingInterceptor writes one line per unary call.
func LoggingInterceptor() grpc.UnaryServerInterceptor {
	log := logger.Module("grpc")
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := log.WithFields(logrus.Fields{
			"method":     info.FullMethod,
			"code":       status.Code(err).String(),
			"latency_ms": float64(time.Since(start).Microseconds()) / 1000.0,
		})
		if err != nil {
			entry.Warn("rpc")
		} else {
			entry.Info("rpc")
		}
		return resp, err
	}
}

// New builds a grpc.Server with the content service and the standard health
// service registered.
func New(srv *Server, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(LoggingInterceptor())}, opts...)
	gs := grpc.NewServer(opts...)
	RegisterContentServiceServer(gs, srv)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return gs, hs
}
