// README: Location handlers: position updates and nearby-driver queries.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"metrosync/internal/http/middleware"
	"metrosync/internal/modules/location"
	"metrosync/internal/modules/user"
	"metrosync/internal/types"
)

type LocationHandler struct {
	locations *location.Service
	users     *user.Service
}

func NewLocationHandler(locations *location.Service, users *user.Service) *LocationHandler {
	return &LocationHandler{locations: locations, users: users}
}

type updateLocationReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	// Snapshot asks for the position to land in the history table too.
	// Clients set it on a slow cadence; plain updates stay in Redis.
	Snapshot bool `json:"snapshot"`
}

// Update records the caller's position. The role comes from the user record,
// not the request, so riders cannot insert themselves into the driver index.
func (h *LocationHandler) Update(c *gin.Context) {
	var req updateLocationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	callerID := types.ID(middleware.CallerUID(c))
	u, err := h.users.Get(c.Request.Context(), callerID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	role := user.RoleRider
	if u.IsDriver() {
		role = user.RoleDriver
	}
	upd := location.Update{
		UserID:   callerID,
		Role:     role,
		Position: types.Point{Lat: req.Lat, Lng: req.Lng},
	}
	err = h.locations.Update(c.Request.Context(), upd)
	if err == location.ErrBadPosition {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if req.Snapshot {
		if err := h.locations.FlushSnapshot(c.Request.Context(), upd); err != nil {
			writeDomainError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// History returns the caller's recent position snapshots, newest first.
func (h *LocationHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	snaps, err := h.locations.History(c.Request.Context(), types.ID(middleware.CallerUID(c)), limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, gin.H{
			"position":    gin.H{"lat": s.Position.Lat, "lng": s.Position.Lng},
			"recorded_at": s.RecordedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": out})
}

func (h *LocationHandler) Offline(c *gin.Context) {
	if err := h.locations.Deactivate(c.Request.Context(), types.ID(middleware.CallerUID(c))); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "offline"})
}

func (h *LocationHandler) NearbyDrivers(c *gin.Context) {
	p, ok := queryPoint(c, "lat", "lng")
	if !ok {
		return
	}
	radius, _ := strconv.ParseFloat(c.Query("radius_m"), 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	drivers, err := h.locations.NearbyDrivers(c.Request.Context(), p, radius, limit)
	if err == location.ErrBadPosition {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, gin.H{
			"driver_id":  d.DriverID,
			"position":   gin.H{"lat": d.Position.Lat, "lng": d.Position.Lng},
			"distance_m": d.DistanceM,
		})
	}
	c.JSON(http.StatusOK, gin.H{"drivers": out})
}
