package httpapi

import (
	"net/http"

	"cardapio/api/internal/cart"
	"cardapio/api/internal/delivery"
	"cardapio/api/internal/logger"
	"cardapio/api/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func (h *Handler) openCart(w http.ResponseWriter, r *http.Request) (*cart.Cart, bool) {
	key := chi.URLParam(r, "cartID")
	if !cart.ValidKey(key) {
		respondError(w, http.StatusBadRequest, "cartId inválido")
		return nil, false
	}
	return cart.Open(r.Context(), h.carts, key), true
}

// respondCart writes the cart. With ?postalCode= the delivery fee and grand
// total are included.
func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, c *cart.Cart) {
	items := c.Items()
	if items == nil {
		items = cart.Items{}
	}
	body := map[string]any{
		"cartId":   c.Key(),
		"items":    items,
		"count":    items.Count(),
		"subtotal": c.Subtotal(),
	}

	if postalCode := r.URL.Query().Get("postalCode"); postalCode != "" {
		zones, err := repository.ActiveZones(r.Context(), h.db)
		if err != nil {
			logger.Errorf("[CART] erro ao carregar zonas: %v", err)
			respondError(w, http.StatusInternalServerError, "erro interno")
			return
		}
		zone := delivery.Resolve(postalCode, zones)
		body["delivery"] = zone
		if zone.Found {
			body["total"] = c.Total(zone.Fee, decimal.Zero)
		}
	}
	respondJSON(w, http.StatusOK, body)
}

// GetCart handles GET /v1/carts/{cartID}
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.openCart(w, r)
	if !ok {
		return
	}
	h.respondCart(w, r, c)
}

// AddCartItem handles POST /v1/carts/{cartID}/items. Product and variant are
// loaded from the catalog; the client never sets prices.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.openCart(w, r)
	if !ok {
		return
	}

	var req struct {
		ProductID string `json:"productId"`
		VariantID string `json:"variantId"`
		Quantity  int    `json:"quantity"`
		Notes     string `json:"notes"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "corpo inválido")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "productId é obrigatório")
		return
	}
	if req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "quantity não pode ser negativa")
		return
	}

	ctx := r.Context()
	p, err := repository.ProductByID(ctx, h.db, req.ProductID)
	if err != nil {
		logger.Errorf("[CART] buscar produto %s: %v", req.ProductID, err)
		respondError(w, http.StatusInternalServerError, "erro interno")
		return
	}
	if p == nil {
		respondError(w, http.StatusNotFound, "produto não encontrado")
		return
	}

	var v *cart.Variant
	if req.VariantID != "" {
		v, err = repository.VariantByID(ctx, h.db, req.ProductID, req.VariantID)
		if err != nil {
			logger.Errorf("[CART] buscar variante %s: %v", req.VariantID, err)
			respondError(w, http.StatusInternalServerError, "erro interno")
			return
		}
		if v == nil {
			respondError(w, http.StatusNotFound, "variante não encontrada")
			return
		}
	}

	// omitido ou zero vale uma unidade
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	c.Add(ctx, *p, quantity, req.Notes, v)
	h.respondCart(w, r, c)
}

// UpdateCartItem handles PATCH /v1/carts/{cartID}/items/{productID}?variantId=
// Without variantId every line of the product is updated; quantity <= 0
// removes them.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.openCart(w, r)
	if !ok {
		return
	}

	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "quantity é obrigatório")
		return
	}

	c.UpdateQuantity(r.Context(), chi.URLParam(r, "productID"), *req.Quantity, r.URL.Query().Get("variantId"))
	h.respondCart(w, r, c)
}

// RemoveCartItem handles DELETE /v1/carts/{cartID}/items/{productID}?variantId=
// Without variantId every variant of the product is removed.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.openCart(w, r)
	if !ok {
		return
	}
	c.Remove(r.Context(), chi.URLParam(r, "productID"), r.URL.Query().Get("variantId"))
	h.respondCart(w, r, c)
}

// ClearCart handles DELETE /v1/carts/{cartID}
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.openCart(w, r)
	if !ok {
		return
	}
	c.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
