package autosettle

import (
	"github.com/aristath/autosettle/internal/events"
)

// RegisterListeners subscribes the service to events that change what the
// background routines should see.
func RegisterListeners(bus *events.Bus, svc *Service) {
	log := svc.log.With().Str("component", "event_listeners").Logger()

	// WalletStatusChanged (disconnected) -> drop the token account set
	bus.Subscribe(events.WalletStatusChanged, func(event *events.Event) {
		data, ok := event.GetTypedData().(*events.WalletStatusChangedData)
		if !ok || data.Connected {
			return
		}
		_ = svc.RefreshTokenAccounts()
		log.Debug().Msg("Cleared token accounts after wallet disconnect")
	})

	// CustomMarketsChanged -> picked up by the next warm pass
	bus.Subscribe(events.CustomMarketsChanged, func(event *events.Event) {
		log.Debug().
			Interface("data", event.Data).
			Msg("Custom markets changed, next cache warm will include them")
	})
}
