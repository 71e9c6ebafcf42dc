package mux

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GRPCStatus classifies an Outcome as a gRPC status, purely for uniform
// observability (metrics, structured log export) alongside whatever else
// a host process reports through gRPC interceptors. The wire protocol
// itself never speaks gRPC; this is an outcome-to-status mapping only.
func (o Outcome) GRPCStatus() *status.Status {
	switch o {
	case ConnectOK, ReadOK, WriteOK, EOSOK, ResetOK:
		return status.New(codes.OK, o.String())
	case ConnectUnknownService:
		return status.New(codes.NotFound, o.String())
	case ConnectSocketInUse:
		return status.New(codes.AlreadyExists, o.String())
	case ReadEOS:
		return status.New(codes.OutOfRange, o.String())
	case ConnectReset, ReadReset, WriteReset, EOSReset:
		return status.New(codes.Aborted, o.String())
	case NoCmd:
		return status.New(codes.Unimplemented, o.String())
	default:
		return status.New(codes.Unknown, o.String())
	}
}
