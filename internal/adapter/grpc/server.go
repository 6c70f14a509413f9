package grpc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/transferauth-backend/internal/domain"
	"github.com/simaogato/transferauth-backend/internal/logging"
	"github.com/simaogato/transferauth-backend/internal/usecase/account"
	"github.com/simaogato/transferauth-backend/internal/usecase/authorization"
	"github.com/simaogato/transferauth-backend/internal/usecase/directory"
	"github.com/simaogato/transferauth-backend/internal/usecase/passwordreset"
)

var _ TransferAuthServer = (*Server)(nil)

// Server implements the TransferAuthService gRPC server
type Server struct {
	DirectoryService *directory.DirectoryService
	AccountService   *account.AccountService
	ResetService     *passwordreset.ResetService
	Sessions         *authorization.Manager

	logger *zap.Logger
}

// NewServer creates a new gRPC server instance
func NewServer(
	directoryService *directory.DirectoryService,
	accountService *account.AccountService,
	resetService *passwordreset.ResetService,
	sessions *authorization.Manager,
	logger *zap.Logger,
) *Server {
	return &Server{
		DirectoryService: directoryService,
		AccountService:   accountService,
		ResetService:     resetService,
		Sessions:         sessions,
		logger:           logging.OrNop(logger),
	}
}

var draftFields = map[domain.DraftField]bool{
	domain.FieldAmount:            true,
	domain.FieldTransferType:      true,
	domain.FieldRecipientName:     true,
	domain.FieldAccountHolderName: true,
	domain.FieldBankName:          true,
	domain.FieldRoutingNumber:     true,
	domain.FieldAccountNumber:     true,
	domain.FieldMemo:              true,
}

// ListRecipients handles the ListRecipients RPC
func (s *Server) ListRecipients(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	recipients, err := s.DirectoryService.List(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]any, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, recipientToMap(r))
	}
	return toStruct(map[string]any{"recipients": out})
}

// AddRecipient handles the AddRecipient RPC
func (s *Server) AddRecipient(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input := directory.AddRecipientInput{
		DisplayName:     stringField(req, "displayName"),
		Email:           stringField(req, "email"),
		Phone:           stringField(req, "phone"),
		BankAccountName: stringField(req, "bankAccountName"),
		BankName:        stringField(req, "bankName"),
		RoutingNumber:   stringField(req, "routingNumber"),
		AccountNumber:   stringField(req, "accountNumber"),
	}

	recipient, err := s.DirectoryService.Add(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{"recipient": recipientToMap(recipient)})
}

// FindRecipient handles the FindRecipient RPC
func (s *Server) FindRecipient(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "id")
	if err != nil {
		return nil, err
	}

	recipient, err := s.DirectoryService.Find(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{"recipient": recipientToMap(recipient)})
}

// StartTransfer handles the StartTransfer RPC.
// The device fingerprint is read only from call metadata, never from the request body.
func (s *Server) StartTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, err := requiredString(req, "userEmail")
	if err != nil {
		return nil, err
	}

	engine, err := s.Sessions.Start(email, CallerFromContext(ctx).DeviceFingerprint)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(transferToMap(engine))
}

// GetTransfer handles the GetTransfer RPC
func (s *Server) GetTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	engine, err := s.engine(ctx)
	if err != nil {
		return nil, err
	}
	return toStruct(transferToMap(engine))
}

// EditDraft handles the EditDraft RPC
func (s *Server) EditDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	engine, err := s.engine(ctx)
	if err != nil {
		return nil, err
	}

	field := domain.DraftField(stringField(req, "field"))
	if !draftFields[field] {
		return nil, status.Errorf(codes.InvalidArgument, "unknown draft field %q", field)
	}

	if err := engine.EditDraft(field, stringField(req, "value")); err != nil {
		return nil, mapError(err)
	}
	return toStruct(transferToMap(engine))
}

// ApplyRecipient handles the ApplyRecipient RPC
func (s *Server) ApplyRecipient(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	engine, err := s.engine(ctx)
	if err != nil {
		return nil, err
	}
	id, err := uuidField(req, "recipientId")
	if err != nil {
		return nil, err
	}

	recipient, err := s.DirectoryService.Find(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	if err := engine.ApplyRecipient(*recipient); err != nil {
		return nil, mapError(err)
	}
	return toStruct(transferToMap(engine))
}

// ClearRecipient handles the ClearRecipient RPC
func (s *Server) ClearRecipient(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	engine, err := s.engine(ctx)
	if err != nil {
		return nil, err
	}
	if err := engine.ClearRecipient(); err != nil {
		return nil, mapError(err)
	}
	return toStruct(transferToMap(engine))
}

// SubmitTransfer handles the SubmitTransfer RPC
func (s *Server) SubmitTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.drive(ctx, func(engine *authorization.Engine) (authorization.Step, error) {
		return engine.Submit()
	})
}

// SubmitPin handles the SubmitPin RPC
func (s *Server) SubmitPin(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pin := stringField(req, "pin")
	return s.drive(ctx, func(engine *authorization.Engine) (authorization.Step, error) {
		return engine.SubmitPin(ctx, pin)
	})
}

// SubmitOtp handles the SubmitOtp RPC
func (s *Server) SubmitOtp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	code := stringField(req, "code")
	return s.drive(ctx, func(engine *authorization.Engine) (authorization.Step, error) {
		return engine.SubmitOtp(ctx, code)
	})
}

// ResendOtp handles the ResendOtp RPC
func (s *Server) ResendOtp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.drive(ctx, func(engine *authorization.Engine) (authorization.Step, error) {
		return engine.ResendOtp(ctx)
	})
}

// CheckDevice handles the CheckDevice RPC
func (s *Server) CheckDevice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.drive(ctx, func(engine *authorization.Engine) (authorization.Step, error) {
		return engine.CheckDevice(ctx)
	})
}

// CancelTransfer handles the CancelTransfer RPC
func (s *Server) CancelTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.drive(ctx, func(engine *authorization.Engine) (authorization.Step, error) {
		return engine.Cancel()
	})
}

// EndTransfer handles the EndTransfer RPC
func (s *Server) EndTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	engine, err := s.engine(ctx)
	if err != nil {
		return nil, err
	}
	s.Sessions.End(engine.Session().ID)
	return toStruct(map[string]any{"sessionId": engine.Session().ID.String(), "ended": true})
}

// GetUser handles the GetUser RPC
func (s *Server) GetUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, err := requiredString(req, "email")
	if err != nil {
		return nil, err
	}

	res, err := s.AccountService.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, mapError(err)
	}

	out := map[string]any{"success": res.Success, "message": res.Message}
	if res.User != nil {
		out["user"] = userToMap(res.User)
	}
	return toStruct(out)
}

// UpdateUser handles the UpdateUser RPC. Absent fields are left unchanged.
func (s *Server) UpdateUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, err := requiredString(req, "email")
	if err != nil {
		return nil, err
	}

	update := domain.UserUpdate{
		FirstName: optionalString(req, "firstName"),
		LastName:  optionalString(req, "lastName"),
		Phone:     optionalString(req, "phone"),
		Email:     optionalString(req, "newEmail"),
	}

	user, err := s.AccountService.UpdateUserByEmail(ctx, email, update)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{"user": userToMap(user)})
}

// ForgotPassword handles the ForgotPassword RPC
func (s *Server) ForgotPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.ResetService.ForgotPassword(ctx, stringField(req, "email"))
	return resultToStruct(res, err)
}

// VerifyOtp handles the VerifyOtp RPC
func (s *Server) VerifyOtp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.ResetService.VerifyOtp(ctx, stringField(req, "email"), stringField(req, "otp"))
	return resultToStruct(res, err)
}

// ResetPassword handles the ResetPassword RPC
func (s *Server) ResetPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.ResetService.ResetPassword(ctx, stringField(req, "email"), stringField(req, "newPassword"))
	return resultToStruct(res, err)
}

// engine resolves the transfer session named in the call metadata
func (s *Server) engine(ctx context.Context) (*authorization.Engine, error) {
	caller := CallerFromContext(ctx)
	if !caller.HasSession {
		return nil, status.Errorf(codes.InvalidArgument, "%s metadata is required", MetadataSessionID)
	}
	engine, err := s.Sessions.Get(caller.SessionID)
	if err != nil {
		return nil, mapError(err)
	}
	return engine, nil
}

// drive runs one engine operation and renders the resulting step
func (s *Server) drive(ctx context.Context, op func(*authorization.Engine) (authorization.Step, error)) (*structpb.Struct, error) {
	engine, err := s.engine(ctx)
	if err != nil {
		return nil, err
	}

	step, err := op(engine)
	if err != nil {
		return nil, mapError(err)
	}
	if step.Outcome != nil && step.Outcome.Kind == domain.OutcomeSucceeded {
		s.logger.Info("transfer authorized over grpc",
			zap.String("session_id", engine.Session().ID.String()),
			zap.String("outcome_id", step.Outcome.ID.String()))
	}
	return toStruct(stepToMap(engine, step))
}

func resultToStruct(res account.Result, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{"success": res.Success, "message": res.Message})
}

func uuidField(req *structpb.Struct, name string) (uuid.UUID, error) {
	raw, err := requiredString(req, name)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return id, nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	errorMsg := err.Error()

	switch {
	case errors.Is(err, domain.ErrValidationFailed):
		return status.Error(codes.InvalidArgument, errorMsg)
	case errors.Is(err, domain.ErrRecipientNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return status.Error(codes.NotFound, errorMsg)
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrFieldLocked),
		errors.Is(err, domain.ErrOtpNotVerified),
		errors.Is(err, domain.ErrChallengeExpired):
		return status.Error(codes.FailedPrecondition, errorMsg)
	case errors.Is(err, domain.ErrChallengeRejected),
		errors.Is(err, domain.ErrChallengeLocked),
		errors.Is(err, domain.ErrPolicyBlocked):
		return status.Error(codes.PermissionDenied, errorMsg)
	case errors.Is(err, domain.ErrServiceUnavailable):
		return status.Error(codes.Unavailable, errorMsg)
	case errors.Is(err, domain.ErrVerificationInFlight):
		return status.Error(codes.Aborted, errorMsg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, errorMsg)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, errorMsg)
	default:
		// Default to Internal error for unknown errors
		return status.Error(codes.Internal, errorMsg)
	}
}
