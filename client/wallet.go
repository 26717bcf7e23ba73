package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/wnt/empyreal/transport"
)

// WalletResource manages custodial and tracked wallets
type WalletResource struct{ resource }

// Info loads a wallet. The private key is only populated when withPrivateKey is set.
func (r *WalletResource) Info(ctx context.Context, walletID uuid.UUID, withPrivateKey bool) (*WalletRecord, error) {
	resp, err := r.get(ctx, "wallets/", map[string]string{
		"walletId":       walletID.String(),
		"withPrivateKey": strconv.FormatBool(withPrivateKey),
	})
	if err != nil {
		return nil, err
	}
	return decodeWallet(resp)
}

// LoadNoncustodial registers or fetches a watch-only wallet for address
func (r *WalletResource) LoadNoncustodial(ctx context.Context, address common.Address) (*WalletRecord, error) {
	resp, err := r.post(ctx, "wallets/noncustodial", map[string]string{"address": address.Hex()})
	if err != nil {
		return nil, err
	}
	return decodeWallet(resp)
}

// AppWallets lists the wallets owned by the application
func (r *WalletResource) AppWallets(ctx context.Context) ([]WalletRecord, error) {
	resp, err := r.get(ctx, "wallets/app", nil)
	if err != nil {
		return nil, err
	}
	return listField[WalletRecord](resp.Body, "wallets")
}

// UserWallets lists the wallets of one user
func (r *WalletResource) UserWallets(ctx context.Context, userID uuid.UUID) ([]WalletRecord, error) {
	resp, err := r.get(ctx, "wallets/user", map[string]string{"userId": userID.String()})
	if err != nil {
		return nil, err
	}
	return listField[WalletRecord](resp.Body, "wallets")
}

// Archive hides a wallet from listings
func (r *WalletResource) Archive(ctx context.Context, walletID uuid.UUID) error {
	_, err := r.put(ctx, "wallets/archive", map[string]string{"walletId": walletID.String()})
	return err
}

type pkWalletBody struct {
	Name       string     `json:"name"`
	PrivateKey *string    `json:"privateKey"`
	UserID     *uuid.UUID `json:"userId"`
}

type mnemonicWalletBody struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
}

// MakeWallet creates a wallet for a user. With a private key the wallet is
// imported from it, otherwise a new mnemonic wallet is generated.
func (r *WalletResource) MakeWallet(ctx context.Context, userID uuid.UUID, name string, privateKey Secret) (*WalletRecord, error) {
	if privateKey != "" {
		return r.makePKWallet(ctx, name, privateKey, &userID)
	}
	resp, err := r.post(ctx, "wallets/mnemonic", mnemonicWalletBody{UserID: userID, Name: name})
	if err != nil {
		return nil, err
	}
	return decodeWallet(resp)
}

// MakeAppWallet creates a wallet owned by the application itself
func (r *WalletResource) MakeAppWallet(ctx context.Context, name string, privateKey Secret) (*WalletRecord, error) {
	return r.makePKWallet(ctx, name, privateKey, nil)
}

func (r *WalletResource) makePKWallet(ctx context.Context, name string, privateKey Secret, userID *uuid.UUID) (*WalletRecord, error) {
	body := pkWalletBody{Name: name, UserID: userID}
	if privateKey != "" {
		key := privateKey.Reveal()
		body.PrivateKey = &key
	}
	resp, err := r.post(ctx, "wallets/pk", body)
	if err != nil {
		return nil, err
	}
	return decodeWallet(resp)
}

type walletDataBody struct {
	WalletID uuid.UUID       `json:"walletId"`
	Archived bool            `json:"archived"`
	Notes    map[string]Note `json:"notes"`
}

// UpdateData replaces the app data of a wallet
func (r *WalletResource) UpdateData(ctx context.Context, walletID uuid.UUID, data WalletData) error {
	notes := data.Notes
	if notes == nil {
		notes = map[string]Note{}
	}
	_, err := r.put(ctx, "wallets/data", walletDataBody{
		WalletID: walletID,
		Archived: data.Archived,
		Notes:    notes,
	})
	return err
}

// Data returns the app data of a wallet
func (r *WalletResource) Data(ctx context.Context, walletID uuid.UUID) (*WalletData, error) {
	resp, err := r.call(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   "wallets/data/" + walletID.String(),
		Route:  "wallets/data/{id}",
	})
	if err != nil {
		return nil, err
	}
	data, err := decode[WalletData](resp)
	if err != nil {
		return nil, err
	}
	if data.Notes == nil {
		data.Notes = map[string]Note{}
	}
	return &data, nil
}

func decodeWallet(resp *transport.Response) (*WalletRecord, error) {
	w, err := decode[WalletRecord](resp)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
