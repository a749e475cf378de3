package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/carpool/internal/auth"
	"github.com/example/carpool/internal/models"
	"github.com/example/carpool/internal/observability"
	"github.com/example/carpool/internal/reservation"
	"github.com/example/carpool/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

type registerReq struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Gender   string `json:"gender"`
	Phone    string `json:"phone"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := s.auth.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Gender:   req.Gender,
		Phone:    req.Phone,
	})
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "user already exists")
			return
		}
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "user registered", "userId": userID})
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	token, user, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"token":   token,
		"user":    map[string]string{"userId": user.ID, "name": user.Name, "email": user.Email},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"userId": id.UserID, "name": id.Name, "email": id.Email})
}

type coordReq struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

type createRideReq struct {
	Pickup        string   `json:"pickup" validate:"required"`
	Dropoff       string   `json:"dropoff" validate:"required"`
	PickupCoords  coordReq `json:"pickupCoords" validate:"required"`
	DropoffCoords coordReq `json:"dropoffCoords" validate:"required"`
	Time          string   `json:"time" validate:"required"`
	Seats         int      `json:"seats" validate:"required,gt=0"`
}

func (s *Server) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFromContext(r.Context())
	var req createRideReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	departAt, err := time.Parse(time.RFC3339, req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "time must be RFC3339")
		return
	}

	ride := &models.Ride{
		DriverID:      id.UserID,
		Pickup:        req.Pickup,
		PickupCoords:  models.Coord{Lng: req.PickupCoords.Lng, Lat: req.PickupCoords.Lat},
		Dropoff:       req.Dropoff,
		DropoffCoords: models.Coord{Lng: req.DropoffCoords.Lng, Lat: req.DropoffCoords.Lat},
		Time:          departAt,
		Seats:         req.Seats,
	}
	rideID, err := s.store.Create(r.Context(), ride)
	if err != nil {
		if errors.Is(err, storage.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.serverError(w, r, err)
		return
	}
	observability.RidesCreatedTotal.Inc()

	if s.geoIdx != nil {
		if err := s.geoIdx.Add(r.Context(), rideID, ride.PickupCoords); err != nil {
			s.logger.Warn("geo index add failed", "ride_id", rideID, "error", err)
		}
	}
	if s.events != nil {
		ev := models.RideEvent{
			Type:      "ride_created",
			RideID:    rideID,
			DriverID:  id.UserID,
			Pickup:    ride.PickupCoords,
			SeatsLeft: ride.Seats,
			At:        time.Now().UTC(),
		}
		if err := s.events.Publish(r.Context(), ev); err != nil {
			s.logger.Warn("ride event publish failed", "ride_id", rideID, "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "ride created", "rideId": rideID})
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		writeError(w, http.StatusBadRequest, "lat and lng are required numbers")
		return
	}
	center := models.Coord{Lng: lng, Lat: lat}
	if !center.Valid() {
		writeError(w, http.StatusBadRequest, "coordinates out of range")
		return
	}
	radius := s.defaultRadius
	if v := q.Get("dist"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "dist must be a positive number")
			return
		}
		radius = d
	}

	results, err := s.queries.Nearby(r.Context(), center, radius)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	rides, err := s.queries.Search(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rides)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFromContext(r.Context())
	rideID := mux.Vars(r)["ride_id"]

	result, err := s.engine.Join(r.Context(), rideID, id.UserID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	switch result {
	case reservation.Joined:
		writeJSON(w, http.StatusOK, map[string]string{"message": "successfully joined ride"})
	case reservation.JoinRideNotFound:
		writeError(w, http.StatusNotFound, "ride not found")
	case reservation.IsOwnRide:
		writeError(w, http.StatusBadRequest, "driver cannot join their own ride")
	case reservation.AlreadyJoined:
		writeError(w, http.StatusBadRequest, "you already joined this ride")
	case reservation.RideFull:
		writeError(w, http.StatusBadRequest, "ride is full")
	default:
		s.serverError(w, r, errors.New("unexpected join result"))
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFromContext(r.Context())
	rideID := mux.Vars(r)["ride_id"]

	result, err := s.engine.Cancel(r.Context(), rideID, id.UserID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	switch result {
	case reservation.Cancelled:
		writeJSON(w, http.StatusOK, map[string]string{"message": "successfully cancelled ride request"})
	case reservation.CancelRideNotFound:
		writeError(w, http.StatusNotFound, "ride not found")
	case reservation.NotAPassenger:
		writeError(w, http.StatusBadRequest, "you are not a passenger in this ride")
	default:
		s.serverError(w, r, errors.New("unexpected cancel result"))
	}
}

func (s *Server) handleMyRides(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFromContext(r.Context())
	driven, joined, err := s.queries.RidesForUser(r.Context(), id.UserID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"driven_rides": driven, "joined_rides": joined})
}

func (s *Server) handleDriverStats(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFromContext(r.Context())
	stats, err := s.queries.DriverStats(r.Context(), id.UserID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	rideID := mux.Vars(r)["ride_id"]
	av, err := s.queries.Availability(r.Context(), rideID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ride not found")
			return
		}
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, av)
}

func (s *Server) handlePopularRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := s.queries.PopularRoutes(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "route", routeTemplate(r), "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
