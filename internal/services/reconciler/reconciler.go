package reconciler

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/BrickSync/internal/broker/messages"
	"github.com/BearBump/BrickSync/internal/integrations/marketplace"
	"github.com/BearBump/BrickSync/internal/integrations/shipping"
	"github.com/BearBump/BrickSync/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrRunInProgress is returned by RunOnce when another run holds the lock.
var ErrRunInProgress = errors.New("reconciliation run already in progress")

const lockKey = "bricksync:run"

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Locker serializes runs across worker instances.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type Observer interface {
	ObserveRun(rep models.RunReport, err error)
}

// Reconciler mirrors ready marketplace orders into the shipping platform and
// propagates shipments back. Every run recomputes its work from live listings.
type Reconciler struct {
	shipping     shipping.Client
	marketplaces []marketplace.Client
	bySource     map[models.Source]marketplace.Client

	producer Producer
	topic    string
	locker   Locker
	lockTTL  time.Duration
	observer Observer
	planner  *Planner
	logger   *zap.Logger

	running   atomic.Bool
	triggerCh chan struct{}
	nextRunAt atomic.Int64

	startedAtUnixNano   int64
	lastRunUnixNano     atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalRuns           atomic.Int64
	failedRuns          atomic.Int64
	degradedRuns        atomic.Int64
	totalCreated        atomic.Int64
	totalMarkedShipped  atomic.Int64
	publishErrors       atomic.Int64

	lastMu     sync.Mutex
	lastError  string
	lastReport *models.RunReport
}

func New(shippingClient shipping.Client, marketplaces []marketplace.Client, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	bySource := make(map[models.Source]marketplace.Client, len(marketplaces))
	for _, mp := range marketplaces {
		bySource[mp.Source()] = mp
	}
	return &Reconciler{
		shipping:          shippingClient,
		marketplaces:      marketplaces,
		bySource:          bySource,
		topic:             messages.TopicOrderSynced,
		lockTTL:           10 * time.Minute,
		planner:           NewPlanner(DefaultPlannerConfig(), nil),
		logger:            logger,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (r *Reconciler) WithProducer(p Producer, topic string) *Reconciler {
	r.producer = p
	if topic != "" {
		r.topic = topic
	}
	return r
}

func (r *Reconciler) WithLocker(l Locker, ttl time.Duration) *Reconciler {
	r.locker = l
	if ttl > 0 {
		r.lockTTL = ttl
	}
	return r
}

func (r *Reconciler) WithObserver(o Observer) *Reconciler {
	r.observer = o
	return r
}

func (r *Reconciler) WithPlanner(cfg PlannerConfig) *Reconciler {
	r.planner = NewPlanner(cfg, nil)
	return r
}

// RunOnce executes stages A-D once. Per-order failures are counted in the
// report and never returned; an error means the run could not start or was
// cancelled.
func (r *Reconciler) RunOnce(ctx context.Context) (models.RunReport, error) {
	rep := models.RunReport{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}
	log := r.logger.With(zap.String("run_id", rep.RunID))

	if !r.running.CompareAndSwap(false, true) {
		return rep, ErrRunInProgress
	}
	defer r.running.Store(false)

	if r.locker != nil {
		ok, err := r.locker.TryLock(ctx, lockKey, r.lockTTL)
		if err != nil {
			return rep, errors.Wrap(err, "acquire run lock")
		}
		if !ok {
			return rep, ErrRunInProgress
		}
		defer func() {
			if err := r.locker.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
				log.Warn("release run lock", zap.Error(err))
			}
		}()
	}

	r.lastRunUnixNano.Store(rep.StartedAt.UnixNano())
	log.Info("run started", zap.Int("marketplaces", len(r.marketplaces)))

	err := r.run(ctx, log, &rep)
	rep.FinishedAt = time.Now().UTC()
	r.record(rep, err)

	fields := []zap.Field{
		zap.Duration("duration", rep.Duration()),
		zap.Int("candidates", rep.Candidates),
		zap.Int("dropped", rep.Dropped),
		zap.Int("created", rep.Created),
		zap.Int("already_synced", rep.AlreadySynced),
		zap.Int("create_failed", rep.CreateFailed),
		zap.Int("shipped_seen", rep.ShippedSeen),
		zap.Int("marked_shipped", rep.MarkedShipped),
		zap.Int("stale", rep.Stale),
		zap.Int("ship_failed", rep.ShipFailed),
		zap.Int("tracking_attached", rep.TrackingAttached),
		zap.Int("tracking_failed", rep.TrackingFailed),
	}
	if rep.Degraded() {
		fields = append(fields, zap.Any("skipped_sources", rep.SkippedSources))
	}
	if rep.SkippedEntries > 0 {
		fields = append(fields, zap.Int("skipped_entries", rep.SkippedEntries))
	}
	if err != nil {
		log.Error("run aborted", append(fields, zap.Error(err))...)
	} else {
		log.Info("run finished", fields...)
	}
	return rep, err
}

func (r *Reconciler) run(ctx context.Context, log *zap.Logger, rep *models.RunReport) error {
	shipStubs, err := r.shipping.ListOrderStubs(ctx)
	if err != nil {
		// Без списка Shippo нельзя отличить новые заказы от уже созданных.
		log.Error("list shipping orders, run skipped", zap.Error(err))
		rep.SkipSource(models.SourceShippo)
		return nil
	}

	listings := r.listMarketplaces(ctx, log, rep)

	candidates := discover(shipStubs, listings, r.marketplaces)
	rep.Candidates = len(candidates)
	log.Info("stage A: candidates discovered",
		zap.Int("shipping_orders", len(shipStubs)),
		zap.Int("candidates", len(candidates)))

	records, err := r.hydrate(ctx, log, rep, candidates)
	if err != nil {
		return err
	}
	log.Info("stage B: candidates hydrated", zap.Int("hydrated", len(records)), zap.Int("dropped", rep.Dropped))

	if err := r.push(ctx, log, rep, records); err != nil {
		return err
	}
	log.Info("stage C: orders pushed", zap.Int("created", rep.Created), zap.Int("already_synced", rep.AlreadySynced))

	if err := r.backPropagate(ctx, log, rep, shipStubs, listings); err != nil {
		return err
	}
	log.Info("stage D: shipments propagated",
		zap.Int("marked_shipped", rep.MarkedShipped),
		zap.Int("tracking_attached", rep.TrackingAttached))
	return nil
}

// listing is one marketplace's stubs for the current run. ok is false when
// the listing call failed and the source is skipped.
type listing struct {
	stubs    []models.OrderStub
	statuses map[string]string
	ok       bool
}

func (r *Reconciler) listMarketplaces(ctx context.Context, log *zap.Logger, rep *models.RunReport) map[models.Source]*listing {
	out := make(map[models.Source]*listing, len(r.marketplaces))
	for _, mp := range r.marketplaces {
		src := mp.Source()
		stubs, err := mp.ListOrderStubs(ctx)
		var skipped *models.SkippedEntriesError
		if errors.As(err, &skipped) {
			rep.SkippedEntries += len(skipped.Entries)
			log.Warn("marketplace listing has malformed entries, skipped",
				zap.String("source", src.String()),
				zap.Int("skipped", len(skipped.Entries)),
				zap.Int("orders", len(stubs)),
				zap.Error(err))
			err = nil
		}
		if err != nil {
			log.Error("list marketplace orders, source skipped", zap.String("source", src.String()), zap.Error(err))
			rep.SkipSource(src)
			out[src] = &listing{}
			continue
		}
		l := &listing{stubs: stubs, statuses: make(map[string]string, len(stubs)), ok: true}
		for _, s := range stubs {
			l.statuses[s.ID] = s.Status
		}
		out[src] = l
		log.Debug("marketplace listed", zap.String("source", src.String()), zap.Int("orders", len(stubs)))
	}
	return out
}

// discover is stage A: ready marketplace stubs whose cross-platform id is not
// yet an order number on the shipping platform.
func discover(shipStubs []models.OrderStub, listings map[models.Source]*listing, marketplaces []marketplace.Client) []models.OrderRef {
	known := make(map[string]struct{}, len(shipStubs))
	for _, s := range shipStubs {
		known[s.ID] = struct{}{}
	}

	var out []models.OrderRef
	for _, mp := range marketplaces {
		l := listings[mp.Source()]
		if l == nil || !l.ok {
			continue
		}
		ready := mp.Policy().Ready
		for _, s := range l.stubs {
			if !ready.Has(s.Status) {
				continue
			}
			ref := models.OrderRef{Source: mp.Source(), NativeID: s.ID}
			id := ref.CrossPlatformID()
			if _, ok := known[id]; ok {
				continue
			}
			known[id] = struct{}{}
			out = append(out, ref)
		}
	}
	return out
}

// hydrate is stage B.
func (r *Reconciler) hydrate(ctx context.Context, log *zap.Logger, rep *models.RunReport, candidates []models.OrderRef) ([]*models.OrderRecord, error) {
	out := make([]*models.OrderRecord, 0, len(candidates))
	for _, ref := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mp := r.bySource[ref.Source]
		l := log.With(orderFields(ref)...)

		rec, err := mp.FetchOrderDetails(ctx, ref.NativeID)
		if err != nil {
			rep.Dropped++
			switch {
			case errors.Is(err, models.ErrNotFound):
				l.Info("order gone, dropped from batch")
			case errors.Is(err, models.ErrMissingField):
				l.Warn("order payload incomplete, dropped from batch", zap.Error(err))
			default:
				l.Error("fetch order details, dropped from batch", zap.Error(err))
			}
			continue
		}

		items, err := mp.FetchOrderItems(ctx, ref.NativeID)
		if err != nil {
			l.Warn("fetch order items, creating without items", zap.Error(err))
			items = []models.LineItem{}
		}
		rec.Items = items
		out = append(out, rec)
	}
	return out, nil
}

// push is stage C. Failed creations are picked up again by the next run's
// stage A.
func (r *Reconciler) push(ctx context.Context, log *zap.Logger, rep *models.RunReport, records []*models.OrderRecord) error {
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		l := log.With(orderFields(rec.Ref())...)

		err := r.shipping.CreateOrder(ctx, rec)
		switch {
		case err == nil:
			rep.Created++
			l.Info("order created on shipping platform", zap.String("weight", rec.Weight), zap.Int("items", len(rec.Items)))
			r.publish(ctx, l, rep.RunID, messages.EventCreated, rec.Ref(), "")
		case errors.Is(err, models.ErrDuplicateSubmission):
			rep.AlreadySynced++
			l.Info("order already on shipping platform")
		default:
			rep.CreateFailed++
			l.Warn("create order on shipping platform", zap.Error(err))
		}
	}
	return nil
}

// backPropagate is stage D.
func (r *Reconciler) backPropagate(ctx context.Context, log *zap.Logger, rep *models.RunReport, shipStubs []models.OrderStub, listings map[models.Source]*listing) error {
	for _, st := range shipStubs {
		if st.Status != models.ShippingStatusShipped || st.Origin == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		origin := *st.Origin
		mp, ok := r.bySource[origin.Source]
		if !ok {
			continue
		}
		if l := listings[origin.Source]; l == nil || !l.ok {
			continue
		}
		rep.ShippedSeen++
		l := log.With(append(orderFields(origin), zap.String("shipping_object_id", st.ShippingObjectID))...)

		status, err := r.originStatus(ctx, mp, listings[origin.Source], origin.NativeID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				rep.Stale++
				l.Info("origin order gone, not marking shipped")
				continue
			}
			rep.ShipFailed++
			l.Warn("resolve origin order status", zap.Error(err))
			continue
		}
		if !mp.Policy().PreShip.Has(status) {
			rep.Stale++
			l.Info("origin order not eligible", zap.String("status", status), zap.Error(models.ErrStaleEligibility))
			continue
		}

		if err := mp.MarkShipped(ctx, origin.NativeID); err != nil {
			rep.ShipFailed++
			l.Warn("mark shipped on marketplace", zap.Error(err))
			continue
		}
		rep.MarkedShipped++
		l.Info("order marked shipped", zap.String("previous_status", status))

		tracking := r.attachTracking(ctx, l, rep, mp, st, origin)
		r.publish(ctx, l, rep.RunID, messages.EventShipped, origin, tracking)
	}
	return nil
}

// originStatus prefers this run's listing and falls back to a detail fetch
// for orders the listing did not include (e.g. filtered by status).
func (r *Reconciler) originStatus(ctx context.Context, mp marketplace.Client, l *listing, id string) (string, error) {
	if s, ok := l.statuses[id]; ok {
		return s, nil
	}
	rec, err := mp.FetchOrderDetails(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.Status, nil
}

func (r *Reconciler) attachTracking(ctx context.Context, l *zap.Logger, rep *models.RunReport, mp marketplace.Client, st models.OrderStub, origin models.OrderRef) string {
	if st.ShippingObjectID == "" {
		rep.TrackingFailed++
		l.Warn("shipping order has no object id, tracking not attached")
		return ""
	}
	sh, err := r.shipping.FetchOrderByObjectID(ctx, st.ShippingObjectID)
	if err != nil {
		rep.TrackingFailed++
		l.Warn("fetch tracking number", zap.Error(err))
		return ""
	}
	if err := mp.AttachTracking(ctx, origin.NativeID, sh.TrackingNumber); err != nil {
		rep.TrackingFailed++
		l.Warn("attach tracking on marketplace", zap.String("tracking_number", sh.TrackingNumber), zap.Error(err))
		return ""
	}
	rep.TrackingAttached++
	l.Info("tracking attached", zap.String("tracking_number", sh.TrackingNumber))
	return sh.TrackingNumber
}

func (r *Reconciler) record(rep models.RunReport, err error) {
	r.totalRuns.Add(1)
	r.totalCreated.Add(int64(rep.Created))
	r.totalMarkedShipped.Add(int64(rep.MarkedShipped))
	if rep.Degraded() {
		r.degradedRuns.Add(1)
	}

	r.lastMu.Lock()
	r.lastReport = &rep
	switch {
	case err != nil:
		r.failedRuns.Add(1)
		r.lastError = err.Error()
	case rep.Degraded():
		r.lastError = "skipped sources: " + joinSources(rep.SkippedSources)
	}
	r.lastMu.Unlock()

	if r.observer != nil {
		r.observer.ObserveRun(rep, err)
	}
}

func orderFields(ref models.OrderRef) []zap.Field {
	return []zap.Field{
		zap.String("source", ref.Source.String()),
		zap.String("order_id", ref.NativeID),
		zap.String("cross_platform_id", ref.CrossPlatformID()),
	}
}

func joinSources(ss []models.Source) string {
	names := make([]string, len(ss))
	for i, s := range ss {
		names[i] = s.String()
	}
	return strings.Join(names, ",")
}
