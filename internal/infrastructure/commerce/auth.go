package commerce

import (
	"context"
	"net/http"

	appauth "github.com/Zhima-Mochi/miniapp-storefront/internal/application/auth"
)

type authResponse struct {
	OK          bool   `json:"ok"`
	AccessToken string `json:"access_token"`
	UserID      int64  `json:"user_id"`
	TelegramID  int64  `json:"telegram_id"`
	IsAdmin     bool   `json:"is_admin"`
}

// AuthTelegram exchanges signed Telegram init data for an API token. The
// signature is verified remotely.
func (c *Client) AuthTelegram(ctx context.Context, initData string) (*appauth.Identity, error) {
	var out authResponse
	body := map[string]string{"initData": initData}
	if err := c.do(ctx, "auth.telegram", http.MethodPost, "/auth/telegram", nil, body, &out); err != nil {
		return nil, err
	}
	return &appauth.Identity{
		OK:          out.OK,
		AccessToken: out.AccessToken,
		UserID:      out.UserID,
		TelegramID:  out.TelegramID,
		IsAdmin:     out.IsAdmin,
	}, nil
}

var _ appauth.TelegramAuth = (*Client)(nil)
