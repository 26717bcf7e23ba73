package client

import "context"

// UserResource resolves application users
type UserResource struct{ resource }

// FromTelegram returns the user linked to a Telegram id
func (r *UserResource) FromTelegram(ctx context.Context, telegramID string) (*UserRecord, error) {
	resp, err := r.get(ctx, "users/telegram", map[string]string{"id": telegramID})
	if err != nil {
		return nil, err
	}
	user, err := decode[UserRecord](resp)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
