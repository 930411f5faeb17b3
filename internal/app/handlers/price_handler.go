package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avetisov/investline/internal/app/service"
)

type PriceHandler struct {
	priceService service.PriceService
}

func NewPriceHandler(priceService service.PriceService) *PriceHandler {
	return &PriceHandler{priceService: priceService}
}

// GetTicker proxies the upstream market ticker through the TTL cache.
func (ph *PriceHandler) GetTicker(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	ticker, err := ph.priceService.GetTicker(symbol)
	if err != nil {
		PrepareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticker)
}
