package antientropy

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/ValentinKolb/qKV/lib/store"
	"github.com/ValentinKolb/qKV/rpc/client"
	"github.com/ValentinKolb/qKV/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/sourcegraph/conc/iter"
)

var Logger = logger.GetLogger("antientropy")

// Round describes one anti-entropy round
type Round struct {
	// Skipped is true if the store was empty or the sampled key could not be read
	Skipped bool
	Key     string
	Version int64
	// Sent lists the peers that acknowledged the update
	Sent []string
	// Failed lists the peers that could not be reached
	Failed []string
}

// IScheduler periodically pushes a randomly sampled key to a random subset of peers.
// Peers apply the update only if its version is newer than their own.
type IScheduler interface {
	// Start runs a round every interval in the background until Stop is called
	Start()
	// Stop stops the background rounds and waits for a running round to finish
	Stop()
	// RunOnce runs a single round synchronously
	RunOnce() Round
	// WriteMetrics writes the metrics of the scheduler in Prometheus text format
	WriteMetrics(w io.Writer)
}

// schedulerImpl implements the IScheduler interface
type schedulerImpl struct {
	interval time.Duration
	fanout   int
	peers    []string
	store    store.IReplicaStore
	dial     client.Dialer

	mu      sync.Mutex // guards stopCh and done
	stopCh  chan struct{}
	done    chan struct{}
	running bool

	metrics      *metrics.Set
	rounds       *metrics.Counter
	skipped      *metrics.Counter
	updatesSent  *metrics.Counter
	sendFailures *metrics.Counter
}

// NewScheduler creates a scheduler for the store that gossips to the given peers.
// The peers must not contain the replica itself.
func NewScheduler(config common.AntiEntropyConfig, peers []string, s store.IReplicaStore, dial client.Dialer) IScheduler {
	set := metrics.NewSet()
	return &schedulerImpl{
		interval:     time.Duration(config.IntervalSecond) * time.Second,
		fanout:       config.Fanout,
		peers:        append([]string(nil), peers...),
		store:        s,
		dial:         dial,
		metrics:      set,
		rounds:       set.NewCounter("qkv_antientropy_rounds_total"),
		skipped:      set.NewCounter("qkv_antientropy_rounds_skipped_total"),
		updatesSent:  set.NewCounter("qkv_antientropy_updates_sent_total"),
		sendFailures: set.NewCounter("qkv_antientropy_send_failures_total"),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see antientropy.IScheduler)
// --------------------------------------------------------------------------

func (a *schedulerImpl) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return
	}
	a.running = true
	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})

	Logger.Infof("Starting anti-entropy every %s with fanout %d over %d peers", a.interval, a.fanout, len(a.peers))

	go a.loop(a.stopCh, a.done)
}

func (a *schedulerImpl) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}
	close(a.stopCh)
	<-a.done
	a.running = false
}

func (a *schedulerImpl) RunOnce() Round {
	a.rounds.Inc()

	key, ok := a.store.RandomKey()
	if !ok {
		a.skipped.Inc()
		return Round{Skipped: true}
	}

	entry, err := a.store.Get(key)
	if err != nil || !entry.Exists() {
		// busy key, try again next round
		a.skipped.Inc()
		return Round{Skipped: true, Key: key}
	}

	round := Round{Key: key, Version: entry.Version}

	targets := a.pickPeers()
	if len(targets) == 0 {
		return round
	}

	errs := iter.Map(targets, func(peer *string) error {
		return a.send(*peer, key, entry)
	})

	for i, err := range errs {
		if err != nil {
			Logger.Warningf("Anti-entropy update of %q to %s failed: %v", key, targets[i], err)
			a.sendFailures.Inc()
			round.Failed = append(round.Failed, targets[i])
			continue
		}
		a.updatesSent.Inc()
		round.Sent = append(round.Sent, targets[i])
	}

	Logger.Debugf("Anti-entropy round: %q version %d sent to %d/%d peers", key, entry.Version, len(round.Sent), len(targets))
	return round
}

func (a *schedulerImpl) WriteMetrics(w io.Writer) {
	a.metrics.WritePrometheus(w)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// loop runs rounds until stopCh is closed
func (a *schedulerImpl) loop(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			a.RunOnce()
		}
	}
}

// pickPeers returns up to fanout peers in random order
func (a *schedulerImpl) pickPeers() []string {
	peers := append([]string(nil), a.peers...)
	rand.Shuffle(len(peers), func(i, j int) {
		peers[i], peers[j] = peers[j], peers[i]
	})
	if a.fanout < len(peers) {
		peers = peers[:a.fanout]
	}
	return peers
}

// send pushes the entry to one peer
func (a *schedulerImpl) send(peer, key string, entry store.Entry) error {
	link, err := a.dial(peer)
	if err != nil {
		return err
	}
	defer link.Close()

	if err := link.Update(key, entry.Value, entry.Version); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}
