package routers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/seatvault/reservation-engine/src/delivery/rest/controllers"
	"github.com/seatvault/reservation-engine/src/delivery/rest/middlewares"
	"github.com/seatvault/reservation-engine/src/delivery/rest/routers/reservation"
	"github.com/seatvault/reservation-engine/src/internal/identity"
	"github.com/seatvault/reservation-engine/src/utils"

	"github.com/gorilla/mux"
)

// Router contains all route handlers.
type Router struct {
	reservationController *controllers.ReservationController
	gate                   *identity.Gate
	logger                 *utils.Logger
}

// NewRouter creates a new router.
func NewRouter(
	reservationController *controllers.ReservationController,
	gate *identity.Gate,
	logger *utils.Logger,
) *Router {
	return &Router{
		reservationController: reservationController,
		gate:                  gate,
		logger:                logger,
	}
}

// SetupRoutes configures all routes.
func (r *Router) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.Use(middlewares.CORS)
	router.Use(middlewares.Logging(r.logger))

	router.HandleFunc("/health", r.healthCheck).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middlewares.Tenant(r.gate, middlewares.WriteError))

	reservation.RegisterReservationRoutes(api, r.reservationController, r.logger)

	return router
}

// healthCheck handles GET /health.
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "github.com/seatvault/reservation-engine",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
