package quorum

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/qKV/lib/store"
	"github.com/ValentinKolb/qKV/rpc/client"
	"github.com/ValentinKolb/qKV/rpc/common"
	"github.com/ValentinKolb/qKV/rpc/serializer"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/multierr"
)

var Logger = logger.GetLogger("quorum")

// coordinatorImpl implements the ICoordinator interface
type coordinatorImpl struct {
	config     common.QuorumConfig
	serializer serializer.IRPCSerializer
	dial       client.Dialer
	fixed      View // only used with the fixed policy

	metrics    gometrics.Registry
	putTimer   gometrics.Timer
	getTimer   gometrics.Timer
	putFailed  gometrics.Counter
	getFailed  gometrics.Counter
	lockDenied gometrics.Counter
}

// NewCoordinator validates the client configuration and creates a coordinator.
// With the fixed policy the read and write quorum are drawn here, once.
// If dial is nil, TCP links are used.
func NewCoordinator(config common.ClientConfig, ser serializer.IRPCSerializer, dial client.Dialer) (ICoordinator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	policy, err := common.ParseQuorumPolicy(string(config.Quorum.Policy))
	if err != nil {
		return nil, err
	}
	config.Quorum.Policy = policy

	if dial == nil {
		dial = client.NewTCPDialer(config.Transport, time.Duration(config.TimeoutSecond)*time.Second, ser)
	}

	registry := gometrics.NewRegistry()
	c := &coordinatorImpl{
		config:     config.Quorum,
		serializer: ser,
		dial:       dial,
		metrics:    registry,
		putTimer:   gometrics.NewRegisteredTimer("put", registry),
		getTimer:   gometrics.NewRegisteredTimer("get", registry),
		putFailed:  gometrics.NewRegisteredCounter("put.failed", registry),
		getFailed:  gometrics.NewRegisteredCounter("get.failed", registry),
		lockDenied: gometrics.NewRegisteredCounter("put.lock_denied", registry),
	}

	if policy == common.QuorumPolicyFixed {
		c.fixed = drawView(c.config.Replicas, c.config.ReadQuorum, c.config.WriteQuorum)
		Logger.Infof("Read quorum: %s", strings.Join(c.fixed.Read, ", "))
		Logger.Infof("Write quorum: %s", strings.Join(c.fixed.Write, ", "))
	}

	return c, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see quorum.ICoordinator)
// --------------------------------------------------------------------------

func (c *coordinatorImpl) View() View {
	if c.config.Policy == common.QuorumPolicyPerOperation {
		return drawView(c.config.Replicas, c.config.ReadQuorum, c.config.WriteQuorum)
	}
	return View{
		Read:  append([]string(nil), c.fixed.Read...),
		Write: append([]string(nil), c.fixed.Write...),
	}
}

func (c *coordinatorImpl) Metrics() gometrics.Registry {
	return c.metrics
}

// lockResult is the outcome of the lock phase on one replica
type lockResult struct {
	endpoint string
	link     client.IReplicaLink // nil if the replica was unreachable
	ok       bool
	version  int64
	err      error
}

func (c *coordinatorImpl) Put(key, value string) (PutResult, error) {
	defer c.putTimer.UpdateSince(time.Now())

	if err := c.validate(key, value, true); err != nil {
		c.putFailed.Inc(1)
		return PutResult{}, err
	}

	members := c.View().Write

	// lock phase: connect and acquire the write lock on every member
	locks := iter.Map(members, func(endpoint *string) lockResult {
		res := lockResult{endpoint: *endpoint}
		res.link, res.err = c.dial(*endpoint)
		if res.err != nil {
			return res
		}
		res.ok, res.version, res.err = res.link.AcquireLock(key)
		return res
	})
	defer c.closeAll(locks)

	var lockErr error
	for _, l := range locks {
		switch {
		case l.err != nil:
			lockErr = multierr.Append(lockErr, fmt.Errorf("%s: %w: %v", l.endpoint, ErrReplicaUnavailable, l.err))
		case !l.ok:
			lockErr = multierr.Append(lockErr, fmt.Errorf("%s: %w", l.endpoint, ErrLockNotAcquired))
		}
	}

	// abort: release every lock granted in this attempt, nothing is written
	if lockErr != nil {
		c.putFailed.Inc(1)
		if errors.Is(lockErr, ErrLockNotAcquired) {
			c.lockDenied.Inc(1)
		}
		c.rollback(key, locks)
		Logger.Debugf("Put %q aborted: %v", key, lockErr)
		return PutResult{}, fmt.Errorf("put %q aborted: %w", key, lockErr)
	}

	// all members are locked, the new version follows the highest one seen
	newVersion := int64(0)
	for _, l := range locks {
		if l.version > newVersion {
			newVersion = l.version
		}
	}
	newVersion++

	// write phase: the replica releases the lock after the put
	written := iter.Map(locks, func(l *lockResult) error {
		ok, err := l.link.Put(key, value, newVersion)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("put rejected, lock not held")
		}
		return nil
	})

	result := PutResult{Version: newVersion}
	for i, err := range written {
		if err != nil {
			Logger.Warningf("Put %q (version %d) failed on %s: %v", key, newVersion, locks[i].endpoint, err)
			result.Failed = append(result.Failed, locks[i].endpoint)
			continue
		}
		result.Written = append(result.Written, locks[i].endpoint)
	}

	Logger.Debugf("Put %q version %d on %d/%d replicas", key, newVersion, len(result.Written), len(locks))
	return result, nil
}

// readResult is the outcome of a read on one replica
type readResult struct {
	endpoint string
	value    string
	version  int64
	ok       bool
	err      error
}

func (c *coordinatorImpl) Get(key string) (Result, error) {
	defer c.getTimer.UpdateSince(time.Now())

	if err := c.validate(key, "", false); err != nil {
		c.getFailed.Inc(1)
		return Result{}, err
	}

	members := c.View().Read

	reads := iter.Map(members, func(endpoint *string) readResult {
		res := readResult{endpoint: *endpoint}
		link, err := c.dial(*endpoint)
		if err != nil {
			res.err = fmt.Errorf("%s: %w: %v", *endpoint, ErrReplicaUnavailable, err)
			return res
		}
		defer link.Close()

		res.value, res.version, res.ok, err = link.Get(key)
		if err != nil {
			res.err = fmt.Errorf("%s: %w: %v", *endpoint, ErrReplicaUnavailable, err)
		} else if !res.ok {
			res.err = fmt.Errorf("%s: read lock unavailable", *endpoint)
		}
		return res
	})

	// pick the strictly highest version, the first response in quorum order wins a tie
	var (
		best      *readResult
		readErr   error
		responses int
	)
	for i := range reads {
		r := &reads[i]
		if r.err != nil {
			Logger.Debugf("Get %q: %v", key, r.err)
			readErr = multierr.Append(readErr, r.err)
			continue
		}
		responses++
		if best == nil || r.version > best.version {
			best = r
		}
	}

	if best == nil {
		c.getFailed.Inc(1)
		return Result{}, fmt.Errorf("get %q: %w: %v", key, ErrNoReadQuorum, readErr)
	}
	if best.version == store.AbsentVersion {
		return Result{}, fmt.Errorf("get %q: %w (%d replicas answered)", key, ErrKeyNotFound, responses)
	}

	return Result{Value: best.value, Version: best.version, Replica: best.endpoint}, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// validate rejects absent keys and values and those the serializer cannot transmit
func (c *coordinatorImpl) validate(key, value string, needValue bool) error {
	if key == "" {
		return fmt.Errorf("%w: key is absent", ErrInvalidArgument)
	}
	if needValue && value == "" {
		return fmt.Errorf("%w: value is absent", ErrInvalidArgument)
	}
	if c.serializer != nil {
		if _, err := c.serializer.Serialize(*common.NewPutRequest(key, value, 0)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}
	return nil
}

// rollback releases the locks granted during a failed lock phase
func (c *coordinatorImpl) rollback(key string, locks []lockResult) {
	iter.ForEach(locks, func(l *lockResult) {
		if l.link == nil || !l.ok {
			return
		}
		if err := l.link.ReleaseLock(key); err != nil {
			// the replica drops the lock when the connection closes
			Logger.Warningf("Failed to release lock of %q on %s: %v", key, l.endpoint, err)
		}
	})
}

// closeAll closes every opened link
func (c *coordinatorImpl) closeAll(locks []lockResult) {
	for _, l := range locks {
		if l.link != nil {
			if err := l.link.Close(); err != nil {
				Logger.Debugf("Failed to close link to %s: %v", l.endpoint, err)
			}
		}
	}
}
