package reservation

import (
	"github.com/seatvault/reservation-engine/src/delivery/rest/controllers"
	"github.com/seatvault/reservation-engine/src/utils"

	"github.com/gorilla/mux"
)

// RegisterReservationRoutes registers every seat-reservation operation
// onto router, which the caller must already have scoped under /api
// (router is a subrouter, so paths here are relative to that prefix),
// all of which require tenant authentication.
func RegisterReservationRoutes(router *mux.Router, c *controllers.ReservationController, logger *utils.Logger) {
	router.HandleFunc("/seats", c.ListSeats).Methods("GET")
	router.HandleFunc("/reserve", c.Reserve).Methods("POST")
	router.HandleFunc("/create-order", c.CreateOrder).Methods("POST")
	router.HandleFunc("/confirm", c.Confirm).Methods("POST")
	router.HandleFunc("/release", c.Release).Methods("POST")
	router.HandleFunc("/my-bookings", c.MyBookings).Methods("GET")
}
