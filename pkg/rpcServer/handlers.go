package rpcServer

import (
	"errors"
	"net/http"

	"github.com/finthetix/sidecar/pkg/stakingErrors"
	"github.com/finthetix/sidecar/pkg/stakingFetcher"
	"github.com/finthetix/sidecar/pkg/storage"
)

type snapshotsResponse struct {
	Address   string                    `json:"address"`
	Snapshots []*storage.RewardSnapshot `json:"snapshots"`
}

func (rpc *RpcServer) GetUserRewards(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	rewards, err := rpc.service.GetUserRewards(r.Context(), pathParams["address"])
	if err != nil {
		rpc.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	rpc.writeJSON(w, http.StatusOK, rewards)
}

func (rpc *RpcServer) GetStatus(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	status, err := rpc.service.GetStatus(r.Context())
	if err != nil {
		rpc.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	rpc.writeJSON(w, http.StatusOK, status)
}

// GetMetadata is cacheable by clients since token metadata does not change.
func (rpc *RpcServer) GetMetadata(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	metadata, err := rpc.service.GetMetadata(r.Context())
	if err != nil {
		rpc.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", rpc.GlobalConfig.CacheConfig.CacheControl())
	rpc.writeJSON(w, http.StatusOK, metadata)
}

func (rpc *RpcServer) GetHistory(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	fromBlock, err := parseUintQuery(r, "fromBlock")
	if err != nil {
		rpc.writeError(w, r, err)
		return
	}
	toBlock, err := parseUintQuery(r, "toBlock")
	if err != nil {
		rpc.writeError(w, r, err)
		return
	}

	history, err := rpc.service.GetHistory(r.Context(), &stakingFetcher.HistoryRequest{
		Address:   pathParams["address"],
		FromBlock: fromBlock,
		ToBlock:   toBlock,
	})
	if err != nil {
		rpc.writeError(w, r, err)
		return
	}
	rpc.writeJSON(w, http.StatusOK, history)
}

func (rpc *RpcServer) ListSnapshots(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	limit, err := parseUintQuery(r, "limit")
	if err != nil {
		rpc.writeError(w, r, err)
		return
	}
	l := storage.DefaultSnapshotListLimit
	if limit != nil {
		if *limit > storage.MaxSnapshotListLimit {
			l = storage.MaxSnapshotListLimit
		} else {
			l = int(*limit)
		}
	}

	address := pathParams["address"]
	snapshots, err := rpc.service.ListSnapshots(address, l)
	if err != nil {
		rpc.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	rpc.writeJSON(w, http.StatusOK, &snapshotsResponse{Address: address, Snapshots: snapshots})
}

func (rpc *RpcServer) PreviewStakeAmount(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	percentage, err := parseUintQuery(r, "percentage")
	if err != nil {
		rpc.writeError(w, r, err)
		return
	}
	if percentage == nil {
		rpc.writeError(w, r, stakingErrors.New(stakingErrors.ErrorKind_InvalidInput, stakingErrors.Op_ParseInput,
			errors.New("percentage is required")))
		return
	}

	preview, err := rpc.service.PreviewStakeAmount(r.Context(), pathParams["address"], *percentage)
	if err != nil {
		rpc.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	rpc.writeJSON(w, http.StatusOK, preview)
}
