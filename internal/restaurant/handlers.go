package restaurant

import (
	"errors"
	"log"
	"net/http"

	"github.com/LiamTurner347/grains/internal/openai"
	"github.com/LiamTurner347/grains/internal/reviews"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// --------------------------------------------------
// GET /api/restaurants/:name/:id/best-dishes
// --------------------------------------------------
func (h *Handler) GetBestDishes(c *gin.Context) {
	name := c.Param("name")
	placeID := c.Param("id")

	if name == "" || placeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "restaurant name and place id are required"})
		return
	}

	rec, err := h.service.GetBestDishes(c.Request.Context(), name, placeID)
	if err != nil {
		log.Printf("Best dishes request failed for %q: %v", name, err)

		// Upstream failures are the provider's fault, storage ours.
		status := http.StatusInternalServerError
		if errors.Is(err, ErrBadSummaryFormat) ||
			errors.Is(err, reviews.ErrUpstream) ||
			errors.Is(err, openai.ErrUpstream) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rec)
}
