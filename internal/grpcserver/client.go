package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"storyhub/internal/content"
	"storyhub/internal/domain"
	"storyhub/pkg/models"
)

// Client calls ContentService with the json codec.
type Client struct {
	cc    grpc.ClientConnInterface
	Token string // optional bearer token
}

func NewClient(cc grpc.ClientConnInterface, token string) *Client {
	return &Client{cc: cc, Token: token}
}

func (c *Client) ctx(ctx context.Context) context.Context {
	if c.Token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.Token)
}

func (c *Client) ListContents(ctx context.Context, in *ListContentsRequest) (*ListContentsResponse, error) {
	out := new(ListContentsResponse)
	err := c.cc.Invoke(c.ctx(ctx), "/"+ServiceName+"/ListContents", in, out, grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetContent(ctx context.Context, in *GetContentRequest) (*GetContentResponse, error) {
	out := new(GetContentResponse)
	err := c.cc.Invoke(c.ctx(ctx), "/"+ServiceName+"/GetContent", in, out, grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Fetch lets the pagination client read pages over gRPC.
func (c *Client) Fetch(ctx context.Context, f content.Filter) ([]models.ContentItem, error) {
	resp, err := c.ListContents(ctx, &ListContentsRequest{Params: content.EncodeFilter(f)})
	if err != nil {
		return nil, fromStatus(err)
	}
	return resp.Items, nil
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return &domain.NetworkError{Err: err}
	}
	if st.Code() == codes.InvalidArgument {
		return &domain.ValidationError{Msg: st.Message(), Err: err}
	}
	return &domain.NetworkError{Err: errors.New(st.Message())}
}
