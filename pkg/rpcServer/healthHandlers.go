package rpcServer

import (
	"context"
	"net/http"
	"time"
)

const readyCheckTimeout = 5 * time.Second

type healthResponse struct {
	Status string `json:"status"`
}

type readyResponse struct {
	Ready bool `json:"ready"`
}

func (rpc *RpcServer) HealthCheck(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	rpc.writeJSON(w, http.StatusOK, &healthResponse{Status: "SERVING"})
}

// ReadyCheck is ready once the node answers a status read.
func (rpc *RpcServer) ReadyCheck(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	if _, err := rpc.service.GetStatus(ctx); err != nil {
		rpc.Logger.Sugar().Warnw("Ready check failed", "error", err)
		rpc.writeJSON(w, http.StatusServiceUnavailable, &readyResponse{Ready: false})
		return
	}
	rpc.writeJSON(w, http.StatusOK, &readyResponse{Ready: true})
}
