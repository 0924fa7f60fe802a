package api

import (
	"math"
	"net/http"
	"time"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

const latestLimit = 20

type StatusResponse struct {
	StartedAt time.Time     `json:"started_at"`
	UptimeSec int64         `json:"uptime_sec"`
	Threshold string        `json:"threshold"`
	RPC       string        `json:"rpc"`
	ChainID   string        `json:"chain_id,omitempty"`
	InFlight  int           `json:"in_flight"`
	Stats     StatsResponse `json:"stats"`
	Latest    []types.Row   `json:"latest"`
}

type StatsResponse struct {
	Seen     uint64  `json:"seen"`
	Done     uint64  `json:"done"`
	Mined    uint64  `json:"mined"`
	Reverted uint64  `json:"reverted"`
	Dropped  uint64  `json:"dropped"`
	AvgDelay float64 `json:"avg_delay"`
	MaxDelay float64 `json:"max_delay"`
}

func (s *Server) handleStatusGet(w http.ResponseWriter, r *http.Request) {
	now := s.opts.Clock()
	resp := StatusResponse{
		StartedAt: s.opts.StartedAt,
		UptimeSec: int64(now.Sub(s.opts.StartedAt) / time.Second),
		Threshold: s.opts.Threshold,
		RPC:       s.opts.RPC,
		ChainID:   s.opts.ChainID,
		Latest:    []types.Row{},
	}

	if s.opts.Tracker != nil {
		st := s.opts.Tracker.Stats()
		resp.InFlight = s.opts.Tracker.InFlight()
		resp.Stats = StatsResponse{
			Seen:     st.Seen,
			Done:     st.Done(),
			Mined:    st.Mined,
			Reverted: st.Reverted,
			Dropped:  st.Dropped,
			AvgDelay: tenth(st.AvgDelay()),
			MaxDelay: tenth(st.MaxDelay),
		}
	}
	if s.opts.Recent != nil {
		resp.Latest = s.opts.Recent.Latest(latestLimit)
	}

	JSON(w, http.StatusOK, resp)
}

func tenth(v float64) float64 {
	return math.Round(v*10) / 10
}
