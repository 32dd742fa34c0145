package ton

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	liteapi "github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/wallet"
)

// WalletContract is the on-chain wallet the adapter sends from.
type WalletContract interface {
	Address() *address.Address
	// Seqno returns the current sequence number; deployed is false when the
	// contract has no state yet.
	Seqno(ctx context.Context) (seqno uint64, deployed bool, err error)
	Deploy(ctx context.Context) error
	// Transfer sends coins and returns the hash of the external message.
	Transfer(ctx context.Context, to *address.Address, amount tlb.Coins, comment string) ([]byte, error)
}

// Dial connects to the liteserver pool described by a global config URL,
// e.g. https://ton.org/global.config.json.
func Dial(ctx context.Context, configURL string) (liteapi.APIClientWrapped, error) {
	pool := liteclient.NewConnectionPool()
	err := pool.AddConnectionsFromConfigUrl(ctx, configURL)
	if err != nil {
		return nil, fmt.Errorf("ton: failed to connect to liteservers: %w", err)
	}
	return liteapi.NewAPIClient(pool, liteapi.ProofCheckPolicyFast).WithRetry(), nil
}

// liteWallet binds a v4r2 wallet to a liteserver API.
type liteWallet struct {
	api    liteapi.APIClientWrapped
	wallet *wallet.Wallet
}

func NewWallet(api liteapi.APIClientWrapped, key ed25519.PrivateKey) (WalletContract, error) {
	w, err := wallet.FromPrivateKey(api, key, wallet.V4R2)
	if err != nil {
		return nil, fmt.Errorf("ton: failed to init wallet: %w", err)
	}
	return &liteWallet{api: api, wallet: w}, nil
}

func (w *liteWallet) Address() *address.Address { return w.wallet.WalletAddress() }

func (w *liteWallet) Seqno(ctx context.Context) (uint64, bool, error) {
	block, err := w.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("ton: failed to get masterchain info: %w", err)
	}

	acc, err := w.api.GetAccount(ctx, block, w.Address())
	if err != nil {
		return 0, false, fmt.Errorf("ton: failed to get account: %w", err)
	}
	if !acc.IsActive || acc.State == nil || acc.State.Status != tlb.AccountStatusActive {
		return 0, false, nil
	}

	res, err := w.api.RunGetMethod(ctx, block, w.Address(), "seqno")
	if err != nil {
		return 0, false, fmt.Errorf("ton: failed to run seqno: %w", err)
	}
	seqno, err := res.Int(0)
	if err != nil {
		return 0, false, fmt.Errorf("ton: failed to parse seqno: %w", err)
	}
	return seqno.Uint64(), true, nil
}

// Deploy sends an external message carrying only the wallet state init.
func (w *liteWallet) Deploy(ctx context.Context) error {
	ext, err := w.wallet.PrepareExternalMessageForMany(ctx, true, nil)
	if err != nil {
		return fmt.Errorf("ton: failed to build deploy message: %w", err)
	}
	err = w.api.SendExternalMessage(ctx, ext)
	if err != nil {
		return fmt.Errorf("ton: failed to send deploy message: %w", err)
	}
	return nil
}

func (w *liteWallet) Transfer(ctx context.Context, to *address.Address, amount tlb.Coins, comment string) ([]byte, error) {
	msg, err := w.wallet.BuildTransfer(to, amount, to.IsBounceable(), comment)
	if err != nil {
		return nil, fmt.Errorf("ton: failed to build transfer: %w", err)
	}

	ext, err := w.wallet.PrepareExternalMessageForMany(ctx, false, []*wallet.Message{msg})
	if err != nil {
		return nil, fmt.Errorf("ton: failed to build external message: %w", err)
	}
	c, err := tlb.ToCell(ext)
	if err != nil {
		return nil, fmt.Errorf("ton: failed to serialize external message: %w", err)
	}

	err = w.api.SendExternalMessage(ctx, ext)
	if err != nil {
		return nil, fmt.Errorf("ton: failed to send transfer: %w", err)
	}
	return c.Hash(), nil
}

// walletAddress derives the v4r2 address of a public key.
func walletAddress(pub ed25519.PublicKey) (*address.Address, error) {
	addr, err := wallet.AddressFromPubKey(pub, wallet.V4R2, wallet.DefaultSubwallet)
	if err != nil {
		return nil, fmt.Errorf("ton: failed to derive wallet address: %w", err)
	}
	return addr, nil
}

// parseKey accepts a hex ed25519 seed (32 bytes) or a full private key (64 bytes).
func parseKey(s string) (ed25519.PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	switch len(b) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(b), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(b), nil
	default:
		return nil, fmt.Errorf("unexpected key length %d", len(b))
	}
}
