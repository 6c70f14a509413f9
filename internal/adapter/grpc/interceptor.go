package grpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/simaogato/transferauth-backend/internal/logging"
)

// Metadata keys read by SessionInterceptor
const (
	MetadataSessionID         = "x-session-id"
	MetadataDeviceFingerprint = "x-device-fingerprint"
)

// AuthInterceptor returns a gRPC unary server interceptor that validates
// the authorization token from request metadata.
// If the token is missing or invalid, it returns status.Unauthenticated.
// If valid, it calls the handler with the original context.
func AuthInterceptor(validToken string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		if authHeaders[0] != validToken {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(ctx, req)
	}
}

// Caller is the per-call session identity taken from metadata
type Caller struct {
	SessionID         uuid.UUID
	HasSession        bool
	DeviceFingerprint string
}

type callerKey struct{}

// CallerFromContext returns the Caller stored by SessionInterceptor
func CallerFromContext(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey{}).(Caller)
	return c
}

// SessionInterceptor parses the transfer session ID and device fingerprint
// from metadata into a Caller on the context.
// A malformed session ID is rejected with InvalidArgument.
func SessionInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		var caller Caller
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(MetadataSessionID); len(ids) > 0 && ids[0] != "" {
				id, err := uuid.Parse(ids[0])
				if err != nil {
					return nil, status.Errorf(codes.InvalidArgument, "invalid %s: %v", MetadataSessionID, err)
				}
				caller.SessionID = id
				caller.HasSession = true
			}
			if fps := md.Get(MetadataDeviceFingerprint); len(fps) > 0 {
				caller.DeviceFingerprint = fps[0]
			}
		}
		return handler(context.WithValue(ctx, callerKey{}, caller), req)
	}
}

// LoggingInterceptor logs each call's method, status code and duration.
// Request bodies are not logged because they carry PINs, codes and passwords.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	logger = logging.OrNop(logger)
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
		}
		switch code {
		case codes.OK:
			logger.Debug("grpc call", fields...)
		case codes.Internal, codes.Unknown:
			logger.Error("grpc call failed", append(fields, zap.Error(err))...)
		default:
			logger.Info("grpc call rejected", fields...)
		}
		return resp, err
	}
}
