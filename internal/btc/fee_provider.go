package btc

import (
	"context"
	"fmt"
)

// minSatsPerByte is the default relay floor.
const minSatsPerByte = 1

func (n *Network) feeRate(ctx context.Context) (float64, error) {
	rate, err := n.fee.SatsPerByte(ctx)
	if err != nil {
		return 0, fmt.Errorf("btc: failed to get sats per byte: %w", err)
	}
	if rate < minSatsPerByte {
		n.logger.WithField("satsPerByte", rate).Warn("fee rate below relay floor, raising it")
		rate = minSatsPerByte
	}
	return rate, nil
}
