// README: Route handlers: lifecycle, stops, and matching queries.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"metrosync/internal/http/middleware"
	"metrosync/internal/modules/route"
	"metrosync/internal/types"
)

type RouteHandler struct {
	routes  *route.Service
	matcher *route.Matcher
}

func NewRouteHandler(routes *route.Service, matcher *route.Matcher) *RouteHandler {
	return &RouteHandler{routes: routes, matcher: matcher}
}

type pointReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type stopReq struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Location      pointReq `json:"location"`
	SequenceOrder int      `json:"sequence_order"`
}

type createRouteReq struct {
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Path          []pointReq `json:"path"`
	MaxDeviationM float64    `json:"max_deviation_m"`
	Stops         []stopReq  `json:"stops"`
}

func (h *RouteHandler) Create(c *gin.Context) {
	var req createRouteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	path := make([]types.Point, 0, len(req.Path))
	for _, p := range req.Path {
		path = append(path, types.Point{Lat: p.Lat, Lng: p.Lng})
	}
	stops := make([]route.StopCommand, 0, len(req.Stops))
	for _, sc := range req.Stops {
		stops = append(stops, route.StopCommand{
			Name:          sc.Name,
			Description:   sc.Description,
			Location:      types.Point{Lat: sc.Location.Lat, Lng: sc.Location.Lng},
			SequenceOrder: sc.SequenceOrder,
		})
	}
	r, err := h.routes.Create(c.Request.Context(), route.CreateCommand{
		DriverID:      types.ID(middleware.CallerUID(c)),
		Name:          req.Name,
		Description:   req.Description,
		Path:          path,
		MaxDeviationM: req.MaxDeviationM,
	}, stops)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, routeView(r))
}

func (h *RouteHandler) Get(c *gin.Context) {
	r, err := h.routes.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, routeView(r))
}

func (h *RouteHandler) Mine(c *gin.Context) {
	list, err := h.routes.ListByDriver(c.Request.Context(), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, routeView(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}

func (h *RouteHandler) Publish(c *gin.Context) {
	r, err := h.routes.Publish(c.Request.Context(), types.ID(c.Param("id")), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, routeView(r))
}

func (h *RouteHandler) Deactivate(c *gin.Context) {
	if err := h.routes.Deactivate(c.Request.Context(), types.ID(c.Param("id")), types.ID(middleware.CallerUID(c))); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

func (h *RouteHandler) Delete(c *gin.Context) {
	if err := h.routes.Delete(c.Request.Context(), types.ID(c.Param("id")), types.ID(middleware.CallerUID(c))); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *RouteHandler) AddStop(c *gin.Context) {
	var req stopReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	stop, err := h.routes.AddStop(c.Request.Context(), types.ID(c.Param("id")), types.ID(middleware.CallerUID(c)), route.StopCommand{
		Name:          req.Name,
		Description:   req.Description,
		Location:      types.Point{Lat: req.Location.Lat, Lng: req.Location.Lng},
		SequenceOrder: req.SequenceOrder,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stopView(stop))
}

func (h *RouteHandler) Stops(c *gin.Context) {
	stops, err := h.routes.Stops(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(stops))
	for i := range stops {
		out = append(out, stopView(&stops[i]))
	}
	c.JSON(http.StatusOK, gin.H{"stops": out})
}

// Nearby returns published routes passing close to ?lat&lng, optionally
// within ?radius_m.
func (h *RouteHandler) Nearby(c *gin.Context) {
	p, ok := queryPoint(c, "lat", "lng")
	if !ok {
		return
	}
	radius, _ := strconv.ParseFloat(c.Query("radius_m"), 64)
	matches, err := h.matcher.FindNearby(c.Request.Context(), p, radius)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matchViews(matches)})
}

// HeadingTo narrows Nearby to routes heading from ?lat&lng towards
// ?dest_lat&dest_lng.
func (h *RouteHandler) HeadingTo(c *gin.Context) {
	origin, ok := queryPoint(c, "lat", "lng")
	if !ok {
		return
	}
	dest, ok := queryPoint(c, "dest_lat", "dest_lng")
	if !ok {
		return
	}
	radius, _ := strconv.ParseFloat(c.Query("radius_m"), 64)
	matches, err := h.matcher.FindHeadingTowards(c.Request.Context(), origin, dest, radius)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matchViews(matches)})
}

func (h *RouteHandler) ValidatePickup(c *gin.Context) {
	p, ok := queryPoint(c, "lat", "lng")
	if !ok {
		return
	}
	valid, dist, err := h.matcher.ValidatePickup(c.Request.Context(), types.ID(c.Param("id")), p)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid, "distance_m": dist})
}

func queryPoint(c *gin.Context, latKey, lngKey string) (types.Point, bool) {
	lat, err1 := strconv.ParseFloat(c.Query(latKey), 64)
	lng, err2 := strconv.ParseFloat(c.Query(lngKey), 64)
	if err1 != nil || err2 != nil {
		writeError(c, http.StatusBadRequest, latKey+" and "+lngKey+" are required")
		return types.Point{}, false
	}
	p := types.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		writeError(c, http.StatusBadRequest, "coordinates out of range")
		return types.Point{}, false
	}
	return p, true
}

func routeView(r *route.Route) gin.H {
	path := make([]gin.H, 0, len(r.Path))
	for _, p := range r.Path {
		path = append(path, gin.H{"lat": p.Lat, "lng": p.Lng})
	}
	return gin.H{
		"route_id":        r.ID,
		"name":            r.Name,
		"description":     r.Description,
		"driver_id":       r.DriverID,
		"path":            path,
		"distance_km":     r.DistanceKm,
		"active":          r.Active,
		"published":       r.Published,
		"max_deviation_m": r.MaxDeviationM,
	}
}

func stopView(s *route.VirtualStop) gin.H {
	v := gin.H{
		"stop_id":        s.ID,
		"route_id":       s.RouteID,
		"name":           s.Name,
		"description":    s.Description,
		"location":       gin.H{"lat": s.Location.Lat, "lng": s.Location.Lng},
		"sequence_order": s.SequenceOrder,
		"active":         s.Active,
	}
	if s.TimeOffsetMin != nil {
		v["time_offset_min"] = *s.TimeOffsetMin
	}
	return v
}

func matchViews(matches []route.Match) []gin.H {
	out := make([]gin.H, 0, len(matches))
	for i := range matches {
		v := routeView(&matches[i].Route)
		v["distance_m"] = matches[i].DistanceM
		out = append(out, v)
	}
	return out
}
