package landmarks

import (
	"context"
	"encoding/json"

	"safedrive/internal/core/domain"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	ServiceName  = "safedrive.landmarks.v1.FaceMesh"
	detectMethod = "/" + ServiceName + "/Detect"
	codecName    = "json"
)

// DetectRequest carries one encoded frame to the face mesh service.
type DetectRequest struct {
	Image    []byte `json:"image"`
	Format   string `json:"format"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	MaxFaces int    `json:"max_faces"`
}

type Face struct {
	Landmarks []domain.LandmarkPoint `json:"landmarks"`
}

// DetectResponse lists detected faces, most prominent first.
type DetectResponse struct {
	Faces []Face `json:"faces"`
}

// jsonCodec lets the face mesh service exchange plain JSON messages over gRPC.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// FaceMeshServer is implemented by landmark backends.
type FaceMeshServer interface {
	Detect(ctx context.Context, req *DetectRequest) (*DetectResponse, error)
}

func RegisterFaceMeshServer(s grpc.ServiceRegistrar, srv FaceMeshServer) {
	s.RegisterService(&FaceMeshServiceDesc, srv)
}

func detectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DetectRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FaceMeshServer).Detect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: detectMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FaceMeshServer).Detect(ctx, req.(*DetectRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var FaceMeshServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FaceMeshServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Detect",
			Handler:    detectHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "landmarks/v1/face_mesh.proto",
}
