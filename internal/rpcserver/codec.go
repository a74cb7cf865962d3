package rpcserver

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the content-subtype clients pass to grpc.CallContentSubtype
// so the negotiated wire format matches jsonCodec instead of grpc-go's
// protobuf default.
const CodecName = "json"

// ClientCallOption is the grpc.CallOption a client dialing this service
// should pass on every unary/stream call to select jsonCodec.
func ClientCallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}

// jsonCodec implements encoding.Codec over plain Go structs, in place of a
// protoc-generated binary codec: request/response types here are hand-
// written Go structs (see messages.go), not generated .pb.go types, so the
// wire format is newline-free JSON rather than protobuf.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// errUnexpectedType is returned by handler shims when gRPC hands back a
// request value of the wrong concrete type, which should only happen if a
// future handler registration typo slips past code review.
func errUnexpectedType(got any) error {
	return fmt.Errorf("rpcserver: unexpected request type %T", got)
}
