package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"storyhub/pkg/models"
)

const ServiceName = "storyhub.v1.ContentService"

// ListContentsRequest carries the same parameters as GET /contents.
type ListContentsRequest struct {
	Params map[string][]string `json:"params"`
}

type ListContentsResponse struct {
	Items   []models.ContentItem `json:"items"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
	HasMore bool                 `json:"has_more"`
}

type GetContentRequest struct {
	Type             string `json:"type"`
	ID               int64  `json:"id"` // per-type id
	ShowAdultContent bool   `json:"show_adult_content"`
}

type GetContentResponse struct {
	Item models.ContentItem `json:"item"`
}

type ContentServiceServer interface {
	ListContents(context.Context, *ListContentsRequest) (*ListContentsResponse, error)
	GetContent(context.Context, *GetContentRequest) (*GetContentResponse, error)
}

func RegisterContentServiceServer(s grpc.ServiceRegistrar, srv ContentServiceServer) {
	s.RegisterService(&contentServiceDesc, srv)
}

var contentServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ContentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListContents", Handler: listContentsHandler},
		{MethodName: "GetContent", Handler: getContentHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storyhub/v1/content.json",
}

func listContentsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListContentsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ContentServiceServer).ListContents(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListContents"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ContentServiceServer).ListContents(ctx, req.(*ListContentsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getContentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetContentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ContentServiceServer).GetContent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetContent"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ContentServiceServer).GetContent(ctx, req.(*GetContentRequest))
	}
	return interceptor(ctx, in, info, handler)
}
