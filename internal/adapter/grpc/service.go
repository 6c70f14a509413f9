package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "transferauth.v1.TransferAuthService"

// Method names of TransferAuthService
const (
	MethodListRecipients = "ListRecipients"
	MethodAddRecipient   = "AddRecipient"
	MethodFindRecipient  = "FindRecipient"
	MethodStartTransfer  = "StartTransfer"
	MethodGetTransfer    = "GetTransfer"
	MethodEditDraft      = "EditDraft"
	MethodApplyRecipient = "ApplyRecipient"
	MethodClearRecipient = "ClearRecipient"
	MethodSubmitTransfer = "SubmitTransfer"
	MethodSubmitPin      = "SubmitPin"
	MethodSubmitOtp      = "SubmitOtp"
	MethodResendOtp      = "ResendOtp"
	MethodCheckDevice    = "CheckDevice"
	MethodCancelTransfer = "CancelTransfer"
	MethodEndTransfer    = "EndTransfer"
	MethodGetUser        = "GetUser"
	MethodUpdateUser     = "UpdateUser"
	MethodForgotPassword = "ForgotPassword"
	MethodVerifyOtp      = "VerifyOtp"
	MethodResetPassword  = "ResetPassword"
)

// FullMethod returns the path a client invokes for method
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// TransferAuthServer is the server API for TransferAuthService.
// Requests and responses are google.protobuf.Struct messages.
type TransferAuthServer interface {
	ListRecipients(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddRecipient(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FindRecipient(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EditDraft(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApplyRecipient(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearRecipient(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitPin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitOtp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResendOtp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckDevice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EndTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ForgotPassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyOtp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetPassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(TransferAuthServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TransferAuthServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TransferAuthServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes TransferAuthService for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TransferAuthServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodListRecipients, TransferAuthServer.ListRecipients),
		unaryHandler(MethodAddRecipient, TransferAuthServer.AddRecipient),
		unaryHandler(MethodFindRecipient, TransferAuthServer.FindRecipient),
		unaryHandler(MethodStartTransfer, TransferAuthServer.StartTransfer),
		unaryHandler(MethodGetTransfer, TransferAuthServer.GetTransfer),
		unaryHandler(MethodEditDraft, TransferAuthServer.EditDraft),
		unaryHandler(MethodApplyRecipient, TransferAuthServer.ApplyRecipient),
		unaryHandler(MethodClearRecipient, TransferAuthServer.ClearRecipient),
		unaryHandler(MethodSubmitTransfer, TransferAuthServer.SubmitTransfer),
		unaryHandler(MethodSubmitPin, TransferAuthServer.SubmitPin),
		unaryHandler(MethodSubmitOtp, TransferAuthServer.SubmitOtp),
		unaryHandler(MethodResendOtp, TransferAuthServer.ResendOtp),
		unaryHandler(MethodCheckDevice, TransferAuthServer.CheckDevice),
		unaryHandler(MethodCancelTransfer, TransferAuthServer.CancelTransfer),
		unaryHandler(MethodEndTransfer, TransferAuthServer.EndTransfer),
		unaryHandler(MethodGetUser, TransferAuthServer.GetUser),
		unaryHandler(MethodUpdateUser, TransferAuthServer.UpdateUser),
		unaryHandler(MethodForgotPassword, TransferAuthServer.ForgotPassword),
		unaryHandler(MethodVerifyOtp, TransferAuthServer.VerifyOtp),
		unaryHandler(MethodResetPassword, TransferAuthServer.ResetPassword),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "transferauth/v1/transferauth.proto",
}

// RegisterTransferAuthServer registers srv with s
func RegisterTransferAuthServer(s grpc.ServiceRegistrar, srv TransferAuthServer) {
	s.RegisterService(&ServiceDesc, srv)
}
