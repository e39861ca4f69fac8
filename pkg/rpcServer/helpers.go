package rpcServer

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/finthetix/sidecar/pkg/stakingErrors"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

var jsonMarshaler = &runtime.JSONBuiltin{}

type errorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (rpc *RpcServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := jsonMarshaler.Marshal(v)
	if err != nil {
		rpc.Logger.Sugar().Errorw("Failed to marshal response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", jsonMarshaler.ContentType(v))
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		rpc.Logger.Sugar().Debugw("Failed to write response", zap.Error(err))
	}
}

// writeError responds with the error kind and its user facing message. Provider output only goes to the logs.
func (rpc *RpcServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := stakingErrors.KindOf(err)
	if kind == stakingErrors.ErrorKind_InvalidInput {
		rpc.Logger.Sugar().Debugw("Rejected request", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		rpc.Logger.Sugar().Errorw("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("requestId", w.Header().Get(requestIdHeader)),
			zap.Error(err),
		)
	}
	w.Header().Set("Cache-Control", "no-store")
	rpc.writeJSON(w, kind.HttpStatus(), &errorResponse{
		Kind:  kind.String(),
		Error: stakingErrors.UserMessageOf(err),
	})
}

// parseUintQuery returns nil when the parameter is absent.
func parseUintQuery(r *http.Request, name string) (*uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, stakingErrors.New(stakingErrors.ErrorKind_InvalidInput, stakingErrors.Op_ParseInput,
			fmt.Errorf("%s must be a non-negative integer", name))
	}
	return &v, nil
}
