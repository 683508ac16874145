package relays

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"trustmesh/engine/library"
	"trustmesh/state/signals"
)

// KindAppData is the parameterized replaceable kind used for mirrored signals, so a relay keeps
// one copy per signal id.
const KindAppData = 30078

const publishTimeout = 10 * time.Second

// SignalEvent wraps sig in a nostr event signed by w.
func SignalEvent(sig signals.Signal, w library.Wallet) (nostr.Event, error) {
	content, err := json.Marshal(sig)
	if err != nil {
		return nostr.Event{}, err
	}
	e := nostr.Event{
		PubKey:    w.Account,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      KindAppData,
		Tags: nostr.Tags{
			nostr.Tag{"d", sig.ID},
			nostr.Tag{"t", sig.Class},
			nostr.Tag{"r", sig.Meta.HRL},
		},
		Content: string(content),
	}
	if err := e.Sign(w.PrivateKey); err != nil {
		return nostr.Event{}, fmt.Errorf("signing %s: %w", sig.ID, err)
	}
	return e, nil
}

// Mirror republishes signals to a set of relays. Each relay has its own goroutine and buffer;
// a slow or broken relay drops its own events without holding anyone else up.
type Mirror struct {
	wallet library.Wallet
	log    library.Logger
	queues map[string]chan nostr.Event
	wg     *deadlock.WaitGroup
	cancel context.CancelFunc
}

// StartMirror connects to every url. Relays that can't be reached are logged and skipped.
func StartMirror(ctx context.Context, urls []string, w library.Wallet, log library.Logger) *Mirror {
	if log == nil {
		log = library.Nop
	}
	ctx, cancel := context.WithCancel(ctx)
	m := &Mirror{
		wallet: w,
		log:    log,
		queues: make(map[string]chan nostr.Event),
		wg:     &deadlock.WaitGroup{},
		cancel: cancel,
	}
	for _, url := range urls {
		relay, err := nostr.RelayConnect(ctx, url)
		if err != nil {
			log.Warn("could not connect to relay", library.Fields{"relay": url, "err": err})
			continue
		}
		q := make(chan nostr.Event, 64)
		m.queues[url] = q
		m.wg.Add(1)
		go m.run(ctx, url, relay, q)
	}
	return m
}

func (m *Mirror) run(ctx context.Context, url string, relay *nostr.Relay, q chan nostr.Event) {
	defer m.wg.Done()
	defer relay.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-q:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			_, err := relay.Publish(pctx, e)
			cancel()
			if err != nil {
				m.log.Warn("could not publish to relay", library.Fields{"relay": url, "event": e.ID, "err": err})
			}
		}
	}
}

// Relays is the number of connected relays.
func (m *Mirror) Relays() int {
	return len(m.queues)
}

// Handle queues sig for every relay. It never blocks; full queues drop the event.
func (m *Mirror) Handle(sig signals.Signal) {
	if len(m.queues) == 0 {
		return
	}
	e, err := SignalEvent(sig, m.wallet)
	if err != nil {
		m.log.Warn("could not build relay event", library.Fields{"id": sig.ID, "err": err})
		return
	}
	for url, q := range m.queues {
		select {
		case q <- e:
		default:
			m.log.Warn("relay queue full, dropping event", library.Fields{"relay": url, "id": sig.ID})
		}
	}
}

// Stop disconnects from every relay. Queued events that were not sent yet are dropped.
func (m *Mirror) Stop() {
	m.cancel()
	m.wg.Wait()
}
