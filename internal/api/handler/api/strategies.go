package api

import (
	"net/http"

	"github.com/newthinker/folio/internal/api/response"
	"github.com/newthinker/folio/internal/strategy"
)

// StrategiesHandler lists the strategy catalog.
type StrategiesHandler struct {
	catalog *strategy.Catalog
}

// NewStrategiesHandler creates a new strategies handler.
func NewStrategiesHandler(catalog *strategy.Catalog) *StrategiesHandler {
	return &StrategiesHandler{catalog: catalog}
}

// StrategyInfo describes one strategy.
type StrategyInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Kind        string   `json:"kind"` // "basket" or "criteria"
	Tickers     []string `json:"tickers,omitempty"`
}

// List returns every strategy in catalog order.
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.catalog.All()
	infos := make([]StrategyInfo, 0, len(all))
	for _, s := range all {
		info := StrategyInfo{
			ID:          string(s.ID),
			Name:        s.Name,
			Description: s.Description,
			Kind:        "criteria",
		}
		if s.IsBasket() {
			info.Kind = "basket"
			info.Tickers = s.Basket
		}
		infos = append(infos, info)
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"strategies":     infos,
		"max_selectable": strategy.MaxStrategies,
	})
}
