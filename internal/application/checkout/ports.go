package checkout

import (
	"context"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/order"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/promo"
)

// CommercePort is the slice of the remote API the checkout flow needs. The
// shopper's credentials travel on ctx.
type CommercePort interface {
	GetCart(ctx context.Context) (*cart.Snapshot, error)
	AddCartItem(ctx context.Context, item cart.AddItem) error
	UpdateCartItem(ctx context.Context, upd cart.UpdateQuantity) error
	RemoveCartItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
	ApplyPromo(ctx context.Context, code string) (*promo.Result, error)
	CreateOrder(ctx context.Context, req order.Request) (*order.Order, error)
	CreatePayment(ctx context.Context, req order.PaymentRequest) (*order.Payment, error)
}

// Locker is a per-key, TTL-bounded try-lock.
type Locker interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Unlock(ctx context.Context, scope, key string) error
}
