package eventconductor

import (
	"context"
	"fmt"

	"github.com/sasha-s/go-deadlock"
	"trustmesh/engine/library"
	"trustmesh/messaging/mirror"
	"trustmesh/state/recognition"
)

// Source is where the conductor reads topic messages from. *mirror.Client implements it.
type Source interface {
	Backfill(ctx context.Context, topic library.TopicID, limit int, order mirror.Order) ([]mirror.Decoded, error)
	Subscribe(ctx context.Context, topic library.TopicID, onDecoded func(mirror.Decoded)) (mirror.Disposer, error)
}

// Options tune the backfill and the pending queue. Zero values take the defaults.
type Options struct {
	Topic         library.TopicID
	BackfillLimit int
	BackfillOrder mirror.Order
	MaxPending    int
}

// Conductor seeds the recognition Mind from a backfill and then keeps it current from the
// live stream. Every operation holds the same lock, so a live frame and a caller never
// interleave inside the Mind. Dispose bumps generation, so an Initialize still running when
// it happens closes its subscription instead of keeping it.
type Conductor struct {
	mu          *deadlock.Mutex
	mind        *recognition.Mind
	source      Source
	opts        Options
	log         library.Logger
	initialized bool
	generation  uint64
	disposers   []mirror.Disposer
}

// New returns a Conductor reading from source and publishing resolved signals into publisher.
func New(source Source, publisher recognition.Publisher, opts Options, log library.Logger) *Conductor {
	if log == nil {
		log = library.Nop
	}
	if opts.BackfillLimit <= 0 {
		opts.BackfillLimit = 200
	}
	if opts.BackfillOrder == "" {
		opts.BackfillOrder = mirror.OrderAsc
	}
	return &Conductor{
		mu:     &deadlock.Mutex{},
		mind:   recognition.NewMind(publisher, log, opts.MaxPending),
		source: source,
		opts:   opts,
		log:    log,
	}
}

func (c *Conductor) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Initialize backfills the topic, ingests definitions before instances, then subscribes to the
// live stream. A second call is a no-op until Dispose runs. On error the guard stays set, so
// callers Dispose before retrying.
func (c *Conductor) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.initialized = true
	gen := c.generation
	c.mu.Unlock()

	c.log.Info("init: backfill + WS", library.Fields{"topic": c.opts.Topic})
	decoded, err := c.source.Backfill(ctx, c.opts.Topic, c.opts.BackfillLimit, c.opts.BackfillOrder)
	if err != nil {
		c.log.Error("initialization failed", library.Fields{"err": err})
		return fmt.Errorf("backfill: %w", err)
	}
	defs, insts := split(decoded)

	c.mu.Lock()
	c.mind.IngestDefinitions(defs)
	c.mind.IngestInstances(insts)
	c.log.Info("backfill summary", library.Fields{
		"total": len(decoded), "defs": len(defs), "inst": len(insts),
		"defsInCache": len(c.mind.IDs()), "pendingInstances": len(c.mind.Pending()),
	})
	c.mu.Unlock()

	dispose, err := c.source.Subscribe(ctx, c.opts.Topic, c.ingest)
	if err != nil {
		c.log.Error("initialization failed", library.Fields{"err": err})
		return fmt.Errorf("live subscription: %w", err)
	}
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.log.Info("disposed during initialization, closing live subscription", library.Fields{"topic": c.opts.Topic})
		dispose()
		return nil
	}
	c.disposers = append(c.disposers, dispose)
	c.mu.Unlock()
	return nil
}

// ingest routes one live message through the same path as the backfill.
func (c *Conductor) ingest(d mirror.Decoded) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch d.Kind {
	case mirror.KindDefinition:
		c.mind.IngestDefinitions([]recognition.Definition{d.Definition})
	case mirror.KindInstance:
		c.mind.IngestInstances([]recognition.Instance{d.Instance})
	}
}

// Dispose closes every live subscription and resets the guard. Caches are kept.
func (c *Conductor) Dispose() {
	c.mu.Lock()
	disposers := c.disposers
	c.disposers = nil
	c.initialized = false
	c.generation++
	c.mu.Unlock()
	// outside the lock: a frame being handled needs it to finish
	for _, fn := range disposers {
		fn()
	}
	c.log.Info("disposed", library.Fields{"subscriptions": len(disposers)})
}

// IngestDefinitions and IngestInstances feed decoded records in directly, e.g. from a replay.
func (c *Conductor) IngestDefinitions(defs []recognition.Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mind.IngestDefinitions(defs)
}

func (c *Conductor) IngestInstances(insts []recognition.Instance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mind.IngestInstances(insts)
}

// ClearCache drops definitions and pending instances. Subscriptions and the guard are untouched.
func (c *Conductor) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mind.Reset()
	c.log.Info("cache cleared", nil)
}

func (c *Conductor) GetDefinition(idOrSlug string) (recognition.Definition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mind.Definition(idOrSlug)
}

func (c *Conductor) GetAllDefinitions() []recognition.Definition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mind.Definitions()
}

func (c *Conductor) Pending() []recognition.Instance {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mind.Pending()
}

func split(decoded []mirror.Decoded) (defs []recognition.Definition, insts []recognition.Instance) {
	for _, d := range decoded {
		switch d.Kind {
		case mirror.KindDefinition:
			defs = append(defs, d.Definition)
		case mirror.KindInstance:
			insts = append(insts, d.Instance)
		}
	}
	return
}
