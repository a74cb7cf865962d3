package rpcserver

import (
	"context"

	"google.golang.org/grpc"
)

// unaryHandler adapts one Service method into the grpc.methodHandler shape
// grpc-go calls through ServiceDesc.Methods, decoding the request with the
// registered codec (jsonCodec, see codec.go) before invoking the handler and
// mapping any returned error through toStatus.
func unaryHandler[Req any, Resp any](call func(*Service, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		svc, ok := srv.(*Service)
		if !ok {
			return nil, errUnexpectedType(srv)
		}
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			resp, err := call(svc, ctx, req)
			return resp, toStatus(err)
		}
		info := &grpc.UnaryServerInfo{Server: svc}
		handler := func(ctx context.Context, reqAny any) (any, error) {
			resp, err := call(svc, ctx, reqAny.(*Req))
			return resp, toStatus(err)
		}
		return interceptor(ctx, req, info, handler)
	}
}

// ServiceName is the gRPC full service name advertised by the ServiceDesc,
// matching the package/service documented in api/cdpd.proto.
const ServiceName = "cdpd.v1.BrowserService"

// ServiceDesc is the hand-written grpc.ServiceDesc for the cdpd browser
// automation surface: one method per unary operation in messages.go, plus
// the Subscribe bidirectional stream, registered against jsonCodec instead
// of protoc-generated bindings.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateBrowser", Handler: unaryHandler((*Service).CreateBrowser)},
		{MethodName: "GetBrowser", Handler: unaryHandler((*Service).GetBrowser)},
		{MethodName: "ListBrowsers", Handler: unaryHandler((*Service).ListBrowsers)},
		{MethodName: "CloseBrowser", Handler: unaryHandler((*Service).CloseBrowser)},
		{MethodName: "CreatePage", Handler: unaryHandler((*Service).CreatePage)},
		{MethodName: "ClosePage", Handler: unaryHandler((*Service).ClosePage)},
		{MethodName: "Navigate", Handler: unaryHandler((*Service).Navigate)},
		{MethodName: "Evaluate", Handler: unaryHandler((*Service).Evaluate)},
		{MethodName: "Screenshot", Handler: unaryHandler((*Service).Screenshot)},
		{MethodName: "GetContent", Handler: unaryHandler((*Service).GetContent)},
		{MethodName: "SetContent", Handler: unaryHandler((*Service).SetContent)},
		{MethodName: "Reload", Handler: unaryHandler((*Service).Reload)},
		{MethodName: "SetExtraHeaders", Handler: unaryHandler((*Service).SetExtraHeaders)},
		{MethodName: "FindElement", Handler: unaryHandler((*Service).FindElement)},
		{MethodName: "GetText", Handler: unaryHandler((*Service).GetText)},
		{MethodName: "GetHTML", Handler: unaryHandler((*Service).GetHTML)},
		{MethodName: "GetAttribute", Handler: unaryHandler((*Service).GetAttribute)},
		{MethodName: "Click", Handler: unaryHandler((*Service).Click)},
		{MethodName: "TypeText", Handler: unaryHandler((*Service).TypeText)},
		{MethodName: "Focus", Handler: unaryHandler((*Service).Focus)},
		{MethodName: "Hover", Handler: unaryHandler((*Service).Hover)},
		{MethodName: "ScrollIntoView", Handler: unaryHandler((*Service).ScrollIntoView)},
		{MethodName: "IsVisible", Handler: unaryHandler((*Service).IsVisible)},
		{MethodName: "IsEnabled", Handler: unaryHandler((*Service).IsEnabled)},
		{MethodName: "GetBoundingBox", Handler: unaryHandler((*Service).GetBoundingBox)},
		{MethodName: "SimulateClick", Handler: unaryHandler((*Service).SimulateClick)},
		{MethodName: "SimulateTypeText", Handler: unaryHandler((*Service).SimulateTypeText)},
		{MethodName: "SimulateMouseMove", Handler: unaryHandler((*Service).SimulateMouseMove)},
		{MethodName: "SimulateScroll", Handler: unaryHandler((*Service).SimulateScroll)},
		{MethodName: "FindBySelector", Handler: unaryHandler((*Service).FindBySelector)},
		{MethodName: "FindAllBySelector", Handler: unaryHandler((*Service).FindAllBySelector)},
		{MethodName: "FindByXPath", Handler: unaryHandler((*Service).FindByXPath)},
		{MethodName: "FindByText", Handler: unaryHandler((*Service).FindByText)},
		{MethodName: "Fill", Handler: unaryHandler((*Service).Fill)},
		{MethodName: "VisibilityWithReasons", Handler: unaryHandler((*Service).VisibilityWithReasons)},
		{MethodName: "DragAndDrop", Handler: unaryHandler((*Service).DragAndDrop)},
		{MethodName: "PressKey", Handler: unaryHandler((*Service).PressKey)},
		{MethodName: "CreateProfile", Handler: unaryHandler((*Service).CreateProfile)},
		{MethodName: "RandomizeProfile", Handler: unaryHandler((*Service).RandomizeProfile)},
		{MethodName: "ApplyProfile", Handler: unaryHandler((*Service).ApplyProfile)},
		{MethodName: "GetAppliedFeatures", Handler: unaryHandler((*Service).GetAppliedFeatures)},
		{MethodName: "ClearStealth", Handler: unaryHandler((*Service).ClearStealth)},
		{MethodName: "InjectStyle", Handler: unaryHandler((*Service).InjectStyle)},
		{MethodName: "SetUserAgent", Handler: unaryHandler((*Service).SetUserAgent)},
		{MethodName: "GetInjectedScripts", Handler: unaryHandler((*Service).GetInjectedScripts)},
		{MethodName: "RemoveScript", Handler: unaryHandler((*Service).RemoveScript)},
		{MethodName: "ClearAllScripts", Handler: unaryHandler((*Service).ClearAllScripts)},
		{MethodName: "DiagnosePage", Handler: unaryHandler((*Service).DiagnosePage)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeStreamHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "cdpd.proto",
}

// subscribeStreamHandler adapts grpc.ServerStream into the frameStream
// Service.Subscribe expects, marshaling each frame through the stream's
// negotiated codec via SendMsg/RecvMsg.
func subscribeStreamHandler(srv any, stream grpc.ServerStream) error {
	svc, ok := srv.(*Service)
	if !ok {
		return errUnexpectedType(srv)
	}
	return svc.Subscribe(&grpcFrameStream{ServerStream: stream})
}

type grpcFrameStream struct {
	grpc.ServerStream
}

func (g *grpcFrameStream) Send(frame *SubscribeFrame) error {
	return g.ServerStream.SendMsg(frame)
}

func (g *grpcFrameStream) Recv() (*SubscribeFrame, error) {
	frame := new(SubscribeFrame)
	if err := g.ServerStream.RecvMsg(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func (g *grpcFrameStream) Context() context.Context {
	return g.ServerStream.Context()
}

// Register attaches the ServiceDesc and its JSON codec to a *grpc.Server.
func Register(server *grpc.Server, svc *Service) {
	server.RegisterService(&ServiceDesc, svc)
}
