package rpcserver

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

// Client is a thin wrapper over a *grpc.ClientConn that invokes
// BrowserService methods by full method name, since there are no
// protoc-generated stubs to call through; api/cdpd.proto documents the same
// shapes this dials against.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient wraps an already-dialed connection. Callers should dial with
// grpc.WithDefaultCallOptions(ClientCallOption()) so requests are encoded
// with jsonCodec.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

func fullMethod(name string) string {
	return fmt.Sprintf("/%s/%s", ServiceName, name)
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	return c.conn.Invoke(ctx, fullMethod(method), req, resp)
}

func (c *Client) CreateBrowser(ctx context.Context, req *CreateBrowserRequest) (*CreateBrowserResponse, error) {
	resp := new(CreateBrowserResponse)
	return resp, c.invoke(ctx, "CreateBrowser", req, resp)
}

func (c *Client) GetBrowser(ctx context.Context, req *GetBrowserRequest) (*GetBrowserResponse, error) {
	resp := new(GetBrowserResponse)
	return resp, c.invoke(ctx, "GetBrowser", req, resp)
}

func (c *Client) ListBrowsers(ctx context.Context, req *ListBrowsersRequest) (*ListBrowsersResponse, error) {
	resp := new(ListBrowsersResponse)
	return resp, c.invoke(ctx, "ListBrowsers", req, resp)
}

func (c *Client) CloseBrowser(ctx context.Context, req *CloseBrowserRequest) (*CloseBrowserResponse, error) {
	resp := new(CloseBrowserResponse)
	return resp, c.invoke(ctx, "CloseBrowser", req, resp)
}

func (c *Client) CreatePage(ctx context.Context, req *CreatePageRequest) (*CreatePageResponse, error) {
	resp := new(CreatePageResponse)
	return resp, c.invoke(ctx, "CreatePage", req, resp)
}

func (c *Client) Navigate(ctx context.Context, req *NavigateRequest) (*NavigateResponse, error) {
	resp := new(NavigateResponse)
	return resp, c.invoke(ctx, "Navigate", req, resp)
}

func (c *Client) SetExtraHeaders(ctx context.Context, req *SetExtraHeadersRequest) (*SetExtraHeadersResponse, error) {
	resp := new(SetExtraHeadersResponse)
	return resp, c.invoke(ctx, "SetExtraHeaders", req, resp)
}

func (c *Client) FindElement(ctx context.Context, req *FindElementRequest) (*FindElementResponse, error) {
	resp := new(FindElementResponse)
	return resp, c.invoke(ctx, "FindElement", req, resp)
}

func (c *Client) Click(ctx context.Context, req *ElementRequest) (*ElementActionResponse, error) {
	resp := new(ElementActionResponse)
	return resp, c.invoke(ctx, "Click", req, resp)
}

func (c *Client) TypeText(ctx context.Context, req *TypeTextElementRequest) (*ElementActionResponse, error) {
	resp := new(ElementActionResponse)
	return resp, c.invoke(ctx, "TypeText", req, resp)
}

func (c *Client) GetBoundingBox(ctx context.Context, req *ElementRequest) (*GetBoundingBoxResponse, error) {
	resp := new(GetBoundingBoxResponse)
	return resp, c.invoke(ctx, "GetBoundingBox", req, resp)
}

func (c *Client) SimulateClick(ctx context.Context, req *ElementRequest) (*SimulateActionResponse, error) {
	resp := new(SimulateActionResponse)
	return resp, c.invoke(ctx, "SimulateClick", req, resp)
}

func (c *Client) Fill(ctx context.Context, req *FillRequest) (*DomScriptResponse, error) {
	resp := new(DomScriptResponse)
	return resp, c.invoke(ctx, "Fill", req, resp)
}

func (c *Client) CreateProfile(ctx context.Context, req *CreateProfileRequest) (*CreateProfileResponse, error) {
	resp := new(CreateProfileResponse)
	return resp, c.invoke(ctx, "CreateProfile", req, resp)
}

func (c *Client) ApplyProfile(ctx context.Context, req *ApplyProfileRequest) (*ApplyProfileResponse, error) {
	resp := new(ApplyProfileResponse)
	return resp, c.invoke(ctx, "ApplyProfile", req, resp)
}

func (c *Client) GetAppliedFeatures(ctx context.Context, req *GetAppliedFeaturesRequest) (*GetAppliedFeaturesResponse, error) {
	resp := new(GetAppliedFeaturesResponse)
	return resp, c.invoke(ctx, "GetAppliedFeatures", req, resp)
}

func (c *Client) DiagnosePage(ctx context.Context, req *DiagnosePageRequest) (*DiagnosePageResponse, error) {
	resp := new(DiagnosePageResponse)
	return resp, c.invoke(ctx, "DiagnosePage", req, resp)
}
