// README: Booking handlers: creation, lifecycle transitions, ratings, queries.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"metrosync/internal/http/middleware"
	"metrosync/internal/modules/booking"
	"metrosync/internal/types"
)

type BookingHandler struct {
	bookings *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{bookings: svc}
}

type createBookingReq struct {
	RouteID      string   `json:"route_id"`
	Pickup       pointReq `json:"pickup"`
	Dropoff      pointReq `json:"dropoff"`
	Passengers   int      `json:"passengers"`
	ScheduledAt  string   `json:"scheduled_at"`
	Instructions string   `json:"special_instructions"`
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	scheduled, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeError(c, http.StatusBadRequest, "scheduled_at must be RFC 3339")
		return
	}
	b, err := h.bookings.Create(c.Request.Context(), booking.CreateCommand{
		RiderID:      types.ID(middleware.CallerUID(c)),
		RouteID:      types.ID(req.RouteID),
		Pickup:       types.Point{Lat: req.Pickup.Lat, Lng: req.Pickup.Lng},
		Dropoff:      types.Point{Lat: req.Dropoff.Lat, Lng: req.Dropoff.Lng},
		Passengers:   req.Passengers,
		ScheduledAt:  scheduled,
		Instructions: req.Instructions,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bookingView(b))
}

func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.bookings.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if !h.isParty(c, b) {
		writeError(c, http.StatusForbidden, "not a party to this booking")
		return
	}
	c.JSON(http.StatusOK, bookingView(b))
}

func (h *BookingHandler) GetByReference(c *gin.Context) {
	b, err := h.bookings.GetByReference(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if !h.isParty(c, b) {
		writeError(c, http.StatusForbidden, "not a party to this booking")
		return
	}
	c.JSON(http.StatusOK, bookingView(b))
}

func (h *BookingHandler) Confirm(c *gin.Context) {
	h.transition(c, h.bookings.Confirm)
}

func (h *BookingHandler) Start(c *gin.Context) {
	h.transition(c, h.bookings.Start)
}

func (h *BookingHandler) Complete(c *gin.Context) {
	h.transition(c, h.bookings.Complete)
}

func (h *BookingHandler) transition(c *gin.Context, step func(ctx context.Context, id, caller types.ID) error) {
	err := step(c.Request.Context(), types.ID(c.Param("id")), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": b.ID, "status": b.Status})
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	var req cancelReq
	_ = c.ShouldBindJSON(&req)
	err := h.bookings.Cancel(c.Request.Context(), types.ID(c.Param("id")), types.ID(middleware.CallerUID(c)), req.Reason)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": booking.StatusCancelled})
}

type rateReq struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

func (h *BookingHandler) Rate(c *gin.Context) {
	var req rateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.bookings.Rate(c.Request.Context(), types.ID(c.Param("id")), types.ID(middleware.CallerUID(c)), req.Rating, req.Feedback)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rated"})
}

func (h *BookingHandler) Mine(c *gin.Context) {
	h.listFor(c, h.bookings.ListByRider)
}

func (h *BookingHandler) Upcoming(c *gin.Context) {
	h.listFor(c, h.bookings.ListUpcomingByRider)
}

func (h *BookingHandler) PendingForDriver(c *gin.Context) {
	h.listFor(c, h.bookings.PendingForDriver)
}

func (h *BookingHandler) listFor(c *gin.Context, query func(ctx context.Context, id types.ID) ([]booking.Booking, error)) {
	list, err := query(c.Request.Context(), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, bookingView(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

// CompletedInRange lists the caller's completed trips between ?from and ?to
// (YYYY-MM-DD, to exclusive; defaults to the last 30 days).
func (h *BookingHandler) CompletedInRange(c *gin.Context) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = time.Parse("2006-01-02", raw); err != nil {
			writeError(c, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = time.Parse("2006-01-02", raw); err != nil {
			writeError(c, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
	}
	list, err := h.bookings.CompletedByDriverInRange(c.Request.Context(), types.ID(middleware.CallerUID(c)), from, to)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, bookingView(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

// DriverStats returns the caller's dashboard snapshot: who is on board, what
// is pending, the next pickup and the day's totals.
func (h *BookingHandler) DriverStats(c *gin.Context) {
	stats, err := h.bookings.DriverStats(c.Request.Context(), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := gin.H{
		"active_passengers": stats.ActivePassengers,
		"pending_requests":  stats.PendingRequests,
		"today_earnings":    stats.TodayEarnings,
		"today_trips":       stats.TodayTrips,
		"today_passengers":  stats.TodayPassengers,
		"acceptance_rate":   stats.AcceptanceRate,
	}
	if stats.NextStop != nil {
		out["next_stop"] = gin.H{
			"stop_name":   stats.NextStop.StopName,
			"eta_minutes": stats.NextStop.ETAMinutes,
		}
	}
	c.JSON(http.StatusOK, out)
}

// ActiveByRoute lists the seats taken on a route for ?day (RFC 3339 date or
// timestamp, defaults to today).
func (h *BookingHandler) ActiveByRoute(c *gin.Context) {
	day := time.Now()
	if raw := c.Query("day"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "day must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	list, err := h.bookings.ActiveByRoute(c.Request.Context(), types.ID(c.Param("id")), day)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, bookingView(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

func (h *BookingHandler) isParty(c *gin.Context, b *booking.Booking) bool {
	caller := types.ID(middleware.CallerUID(c))
	return caller == b.RiderID || caller == b.DriverID
}

func bookingView(b *booking.Booking) gin.H {
	v := gin.H{
		"booking_id":           b.ID,
		"reference":            b.Reference,
		"rider_id":             b.RiderID,
		"driver_id":            b.DriverID,
		"route_id":             b.RouteID,
		"pickup":               gin.H{"lat": b.Pickup.Lat, "lng": b.Pickup.Lng},
		"dropoff":              gin.H{"lat": b.Dropoff.Lat, "lng": b.Dropoff.Lng},
		"passengers":           b.Passengers,
		"distance_km":          b.DistanceKm,
		"fare":                 gin.H{"amount": b.Fare.Amount, "currency": b.Fare.Currency},
		"status":               b.Status,
		"scheduled_at":         b.ScheduledAt,
		"estimated_arrival_at": b.EstimatedArrive,
	}
	if b.Instructions != "" {
		v["special_instructions"] = b.Instructions
	}
	if b.StopID != nil {
		v["stop_id"] = *b.StopID
	}
	if b.CancelReason != nil {
		v["cancel_reason"] = *b.CancelReason
	}
	return v
}
