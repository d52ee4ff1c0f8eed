package services

import (
	"context"
	"log/slog"

	"flux-parties/models"
	"flux-parties/utils"

	pubnub "github.com/pubnub/go"
)

const alertChannel = "security-alerts"

// PubNubAlerter pushes scan outcomes to the security dashboard channel.
// Duplicate scans are the payload that matters: a token being replayed at the
// door means a shared or photographed QR. Publishing goes through a circuit
// breaker so an outage at PubNub degrades to log lines, never blocked scans.
type PubNubAlerter struct {
	pubnub  *pubnub.PubNub
	breaker *utils.CircuitBreaker
	logger  *slog.Logger
}

func NewPubNubAlerter(pn *pubnub.PubNub, logger *slog.Logger) *PubNubAlerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PubNubAlerter{
		pubnub:  pn,
		breaker: utils.NewCircuitBreaker(alertChannel),
		logger:  logger,
	}
}

func (a *PubNubAlerter) ScanAlert(ctx context.Context, direction string, guest models.Guest, res models.ScanResult) {
	err := a.breaker.Execute(func() error {
		_, _, err := a.pubnub.Publish().
			Channel(alertChannel).
			Message(map[string]any{
				"type":      "scan",
				"direction": direction,
				"guest":     guest.Number,
				"wave":      guest.WaveName,
				"success":   res.OK,
				"is_reuse":  res.Reuse,
				"message":   res.Message,
			}).
			Execute()
		return err
	})
	if err != nil {
		a.logger.Warn("scan alert not delivered",
			"direction", direction, "guest", guest.Number, "is_reuse", res.Reuse, "error", err)
	}
}
