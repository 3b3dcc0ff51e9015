package rest

import (
	"github.com/seatvault/reservation-engine/src/delivery/rest/controllers"
	"github.com/seatvault/reservation-engine/src/delivery/rest/routers"
	"github.com/seatvault/reservation-engine/src/internal/engine"
	"github.com/seatvault/reservation-engine/src/internal/identity"
	"github.com/seatvault/reservation-engine/src/utils"
)

// RestContainer holds all REST delivery instances
type RestContainer struct {
	Router *routers.Router
}

// NewRestContainer creates a new REST container
func NewRestContainer(e *engine.Engine, gate *identity.Gate, logger *utils.Logger) *RestContainer {
	reservationController := controllers.NewReservationController(e, gate, logger)

	router := routers.NewRouter(reservationController, gate, logger)

	return &RestContainer{
		Router: router,
	}
}
