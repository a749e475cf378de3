// Package httpapi exposes the carpool operations over HTTP. Routing is
// gorilla/mux; business outcomes from the reservation engine map onto
// status codes here and nowhere else.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/carpool/internal/auth"
	"github.com/example/carpool/internal/dispatch"
	"github.com/example/carpool/internal/geo"
	"github.com/example/carpool/internal/query"
	"github.com/example/carpool/internal/reservation"
	"github.com/example/carpool/internal/storage"
)

type Server struct {
	logger   *slog.Logger
	auth     *auth.Service
	engine   *reservation.Engine
	queries  *query.Service
	store    storage.RideStore
	geoIdx   geo.Geo // optional
	events   reservation.EventPublisher
	wsreg    *dispatch.WSRegistry
	validate *validator.Validate

	defaultRadius float64
	mux           *mux.Router
}

type Deps struct {
	Logger        *slog.Logger
	Auth          *auth.Service
	Engine        *reservation.Engine
	Queries       *query.Service
	Store         storage.RideStore
	Geo           geo.Geo
	Events        reservation.EventPublisher
	WSRegistry    *dispatch.WSRegistry
	DefaultRadius float64
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.DefaultRadius <= 0 {
		d.DefaultRadius = 5000
	}
	s := &Server{
		logger:        d.Logger,
		auth:          d.Auth,
		engine:        d.Engine,
		queries:       d.Queries,
		store:         d.Store,
		geoIdx:        d.Geo,
		events:        d.Events,
		wsreg:         d.WSRegistry,
		validate:      validator.New(),
		defaultRadius: d.DefaultRadius,
		mux:           mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/rides/nearby", s.handleNearby).Methods("GET")

	api.Handle("/me", s.authenticated(s.handleMe)).Methods("GET")
	api.Handle("/ride/create", s.authenticated(s.handleCreateRide)).Methods("POST")
	api.Handle("/rides/search", s.authenticated(s.handleSearch)).Methods("GET")
	api.Handle("/ride/request/{ride_id}", s.authenticated(s.handleJoin)).Methods("POST")
	api.Handle("/ride/cancel/{ride_id}", s.authenticated(s.handleCancel)).Methods("POST")
	api.Handle("/my/rides", s.authenticated(s.handleMyRides)).Methods("GET")
	api.Handle("/driver/stats", s.authenticated(s.handleDriverStats)).Methods("GET")
	api.Handle("/ride/{ride_id}/availability", s.authenticated(s.handleAvailability)).Methods("GET")
	api.Handle("/analytics/popular-routes", s.authenticated(s.handlePopularRoutes)).Methods("GET")

	s.mux.HandleFunc("/ws/{driver_id}", s.handleWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

var upgrader = websocket.Upgrader{}

// handleWS attaches a driver session to the seat-change feed.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsreg == nil {
		http.Error(w, "notifications disabled", http.StatusNotImplemented)
		return
	}
	driverID := mux.Vars(r)["driver_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.wsreg.Add(driverID, conn)
}
