package commerce

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/order"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/promo"
)

func (c *Client) GetCart(ctx context.Context) (*cart.Snapshot, error) {
	var out cart.Snapshot
	if err := c.do(ctx, "cart.get", http.MethodGet, "/cart/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddCartItem(ctx context.Context, item cart.AddItem) error {
	return c.do(ctx, "cart.add_item", http.MethodPost, "/cart/items", nil, item, nil)
}

func (c *Client) UpdateCartItem(ctx context.Context, upd cart.UpdateQuantity) error {
	path := fmt.Sprintf("/cart/items/%d", upd.ItemID)
	return c.do(ctx, "cart.update_item", http.MethodPatch, path, nil, upd, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, itemID int64) error {
	path := fmt.Sprintf("/cart/items/%d", itemID)
	return c.do(ctx, "cart.remove_item", http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, "cart.clear", http.MethodDelete, "/cart/", nil, nil, nil)
}

// ApplyPromo asks the remote API to validate code against the current cart.
func (c *Client) ApplyPromo(ctx context.Context, code string) (*promo.Result, error) {
	var out promo.Result
	body := map[string]string{"code": code}
	if err := c.do(ctx, "cart.apply_promo", http.MethodPost, "/cart/apply-promo", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateOrder(ctx context.Context, req order.Request) (*order.Order, error) {
	var out order.Order
	if err := c.do(ctx, "orders.create", http.MethodPost, "/orders/create", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePayment(ctx context.Context, req order.PaymentRequest) (*order.Payment, error) {
	var out order.Payment
	if err := c.do(ctx, "cart.checkout", http.MethodPost, "/cart/checkout", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
