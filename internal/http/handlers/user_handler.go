// README: User handlers: registration, profile, vehicles.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"metrosync/internal/http/middleware"
	"metrosync/internal/modules/user"
	"metrosync/internal/types"
)

type UserHandler struct {
	users *user.Service
}

func NewUserHandler(svc *user.Service) *UserHandler {
	return &UserHandler{users: svc}
}

type registerReq struct {
	Username string   `json:"username"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Roles    []string `json:"roles"`
}

// Register creates the profile for the authenticated identity. The caller's
// UID becomes the user id.
func (h *UserHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	roles := make([]user.Role, 0, len(req.Roles))
	for _, r := range req.Roles {
		roles = append(roles, user.Role(strings.ToUpper(r)))
	}
	id, err := h.users.Register(c.Request.Context(), user.RegisterCommand{
		ID:       types.ID(middleware.CallerUID(c)),
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Roles:    roles,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": id})
}

func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, userView(u))
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, userView(u))
}

type addVehicleReq struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	Color        string `json:"color"`
	LicensePlate string `json:"license_plate"`
	Capacity     int    `json:"capacity"`
	Type         string `json:"type"`
}

func (h *UserHandler) AddVehicle(c *gin.Context) {
	var req addVehicleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id, err := h.users.AddVehicle(c.Request.Context(), user.AddVehicleCommand{
		OwnerID:      types.ID(middleware.CallerUID(c)),
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		Color:        req.Color,
		LicensePlate: req.LicensePlate,
		Capacity:     req.Capacity,
		Type:         user.VehicleType(strings.ToUpper(req.Type)),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vehicle_id": id})
}

func (h *UserHandler) Vehicles(c *gin.Context) {
	vehicles, err := h.users.Vehicles(c.Request.Context(), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, gin.H{
			"vehicle_id":    v.ID,
			"make":          v.Make,
			"model":         v.Model,
			"year":          v.Year,
			"color":         v.Color,
			"license_plate": v.LicensePlate,
			"capacity":      v.Capacity,
			"type":          v.Type,
			"active":        v.Active,
		})
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": out})
}

func userView(u *user.User) gin.H {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	return gin.H{
		"user_id":       u.ID,
		"username":      u.Username,
		"full_name":     u.FullName,
		"email":         u.Email,
		"phone":         u.Phone,
		"roles":         roles,
		"rating":        u.Rating,
		"total_ratings": u.TotalRatings,
		"active":        u.Active,
	}
}
