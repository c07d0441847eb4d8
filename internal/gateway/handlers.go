package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/netrasat/groundcore/internal/bridge"
	"github.com/netrasat/groundcore/internal/logger"
	"github.com/netrasat/groundcore/pkg/bridgelog"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, OKResponse(map[string]string{"service": "groundcore"}))
}

// stationSummary is one row of the station list.
type stationSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BrokerB    string `json:"broker_b"`
	ConnectedA bool   `json:"connected_a"`
	ConnectedB bool   `json:"connected_b"`
}

func (s *Server) handleListStations(w http.ResponseWriter, _ *http.Request) {
	stations := s.manager.Stations()

	out := make([]stationSummary, 0, len(stations))
	for _, st := range stations {
		aOK, bOK, _ := s.manager.Status(st.ID)
		out = append(out, stationSummary{
			ID:         st.ID,
			Name:       st.Name,
			BrokerB:    st.BrokerB.Host,
			ConnectedA: aOK,
			ConnectedB: bOK,
		})
	}
	JSON(w, http.StatusOK, OKResponse(out))
}

func (s *Server) handleStationConnect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.manager.Connect(id); err != nil {
		if errors.Is(err, bridge.ErrUnknownStation) {
			NotFound(w, "unknown station: "+id)
			return
		}
		logger.Error("station connect failed", logger.Station(id), logger.Err(err))
		JSON(w, http.StatusBadGateway, ErrorResponse(err.Error()))
		return
	}

	logger.Info("station connected", logger.Station(id))
	JSON(w, http.StatusOK, OKResponse(map[string]string{"station": id, "state": "connected"}))
}

func (s *Server) handleStationDisconnect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.manager.Disconnect(id); err != nil {
		if errors.Is(err, bridge.ErrUnknownStation) {
			NotFound(w, "unknown station: "+id)
			return
		}
		InternalServerError(w, err.Error())
		return
	}

	logger.Info("station disconnected", logger.Station(id))
	JSON(w, http.StatusOK, OKResponse(map[string]string{"station": id, "state": "disconnected"}))
}

// topicStatus reports one logical topic: live in-memory counters, the
// totals rebuilt from the message log, and their sum.
type topicStatus struct {
	Live   bridgelog.Counters `json:"live"`
	Logged bridgelog.Counters `json:"logged"`
	Total  bridgelog.Counters `json:"total"`
}

type stationStatus struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	ConnectedA bool                   `json:"connected_a"`
	ConnectedB bool                   `json:"connected_b"`
	Topics     map[string]topicStatus `json:"topics"`
}

func (s *Server) handleStationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	st, err := s.manager.Station(id)
	if err != nil {
		NotFound(w, "unknown station: "+id)
		return
	}
	aOK, bOK, _ := s.manager.Status(id)

	totals, err := s.log.Totals(r.Context(), id)
	if err != nil {
		logger.Error("status totals query failed", logger.Station(id), logger.Err(err))
		InternalServerError(w, "message log unavailable")
		return
	}
	live := s.manager.Stats().Snapshot(id)

	topics := make(map[string]topicStatus, len(bridgelog.LogicalTopics))
	for _, topic := range bridgelog.LogicalTopics {
		topics[topic] = topicStatus{
			Live:   live[topic],
			Logged: totals[topic],
			Total:  live[topic].Add(totals[topic]),
		}
	}

	JSON(w, http.StatusOK, OKResponse(stationStatus{
		ID:         st.ID,
		Name:       st.Name,
		ConnectedA: aOK,
		ConnectedB: bOK,
		Topics:     topics,
	}))
}

func (s *Server) handleStationMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.manager.Station(id); err != nil {
		NotFound(w, "unknown station: "+id)
		return
	}

	topic := r.URL.Query().Get("topic")
	limit, offset := pagination(r)

	entries, err := s.log.Recent(r.Context(), id, topic, limit, offset)
	if err != nil {
		if errors.Is(err, bridgelog.ErrUnknownTopic) {
			BadRequest(w, "unknown topic: "+topic)
			return
		}
		logger.Error("message query failed",
			logger.Station(id), logger.Topic(topic), logger.Err(err))
		InternalServerError(w, "message log unavailable")
		return
	}

	JSON(w, http.StatusOK, OKResponse(entries))
}

func (s *Server) handleStationHealth(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.manager.Station(id); err != nil {
		NotFound(w, "unknown station: "+id)
		return
	}

	band := r.URL.Query().Get("band")
	limit, offset := pagination(r)

	entries, err := s.log.RecentHealth(r.Context(), id, band, limit, offset)
	if err != nil {
		if errors.Is(err, bridgelog.ErrUnknownBand) {
			BadRequest(w, "unknown band: "+band)
			return
		}
		logger.Error("health query failed",
			logger.Station(id), logger.Band(band), logger.Err(err))
		InternalServerError(w, "message log unavailable")
		return
	}

	JSON(w, http.StatusOK, OKResponse(entries))
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, OKResponse(s.manager.Stats().SnapshotAll()))
}

// pagination reads limit/offset query parameters with sane bounds.
func pagination(r *http.Request) (limit, offset int) {
	limit = 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
