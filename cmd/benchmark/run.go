package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/containerd/log"
	"github.com/delaneyj/fiberparty/class"
	"github.com/delaneyj/fiberparty/config"
	"github.com/delaneyj/fiberparty/element"
	"github.com/delaneyj/fiberparty/expiration"
	"github.com/delaneyj/fiberparty/fiber"
	"github.com/delaneyj/fiberparty/reconciler"
	"github.com/delaneyj/fiberparty/scheduler"
	"github.com/delaneyj/fiberparty/update"
	"github.com/jamiealquiza/tachymeter"
)

const keysState = "keys"

// list renders one li per key held in its state.
type list struct {
	class.Base
}

func (l *list) render() []any {
	keys, _ := l.State[keysState].([]string)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = element.New("li", k, element.Props{"label": k})
	}
	return out
}

var listType = &class.Type{
	Name: "List",
	New: func(props element.Props, _ any) (class.Instance, error) {
		size, _ := props["size"].(int)
		keys := make([]string, size)
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		return &list{Base: class.Base{State: update.State{keysState: keys}}}, nil
	},
}

type result struct {
	scenario   config.Scenario
	metrics    *tachymeter.Metrics
	placements int
	deletions  int
	nodes      int
	tree       *fiber.Arena
	root       *fiber.Root
	effects    *fiber.EffectList
}

// bench drives one scenario: a single root holding a List whose state is
// mutated every iteration through SetState. The scheduler flush renders the
// root, so every timing covers update, fold, diff and commit.
type bench struct {
	sc      config.Scenario
	rng     *rand.Rand
	nextKey int

	arena   *fiber.Arena
	root    *fiber.Root
	sched   *scheduler.Scheduler
	manager *class.Manager
	rec     *reconciler.Reconciler
	inst    *list
	props   element.Props

	effects   *fiber.EffectList
	renderErr error
}

func newBench(ctx context.Context, sc config.Scenario, clk clock.Clock) *bench {
	logger := log.G(ctx).WithField("scenario", sc.Name)
	b := &bench{
		sc:      sc,
		rng:     rand.New(rand.NewPCG(uint64(sc.Seed), uint64(sc.Size))),
		nextKey: sc.Size,
		arena:   fiber.NewArena(),
		props:   element.Props{"size": sc.Size},
	}
	b.sched = scheduler.New(b.arena, clk, scheduler.WithLogger(logger), scheduler.WithFlush(b.flush))
	b.manager = class.NewManager(b.arena, b.sched, class.WithLogger(logger))
	b.rec = reconciler.New(b.arena, reconciler.WithLogger(logger))
	return b
}

func (b *bench) mode() fiber.Mode {
	if b.sc.Concurrent {
		return fiber.ConcurrentMode
	}
	return fiber.NoContext
}

func (b *bench) mount() error {
	root, top := b.arena.CreateRoot(b.sc.Name, b.mode())
	b.root = root
	return b.sched.Render(root, expiration.Sync, func() error {
		return b.mountList(root, top)
	})
}

func (b *bench) mountList(root *fiber.Root, top *fiber.Fiber) error {
	wipRoot := b.arena.CreateWorkInProgress(top, nil)
	if _, err := b.rec.ReconcileChildren(nil, wipRoot, element.New(listType, "", b.props), expiration.Sync); err != nil {
		return err
	}
	owner := b.arena.Get(wipRoot.Child)
	owner.ExpirationTime = expiration.NoWork
	inst, err := b.manager.ConstructClassInstance(owner, listType, b.props)
	if err != nil {
		return err
	}
	b.inst = inst.(*list)
	if err := b.manager.MountClassInstance(owner, listType, b.props, expiration.Sync); err != nil {
		return err
	}
	owner.MemoizedProps = b.props
	if _, err := b.rec.ReconcileChildren(nil, owner, b.inst.render(), expiration.Sync); err != nil {
		return err
	}
	wipRoot.ChildExpirationTime = max(owner.ExpirationTime, owner.ChildExpirationTime)
	return root.Commit(b.arena, wipRoot)
}

// flush renders the pending work of root at priority t and commits it.
func (b *bench) flush(root *fiber.Root, t expiration.Time) {
	b.renderErr = b.sched.Render(root, t, func() error {
		return b.render(root, t)
	})
}

func (b *bench) render(root *fiber.Root, t expiration.Time) error {
	current := b.arena.Get(root.Current)
	wipRoot := b.arena.CreateWorkInProgress(current, nil)
	if err := b.rec.CloneChildFibers(current, wipRoot); err != nil {
		return err
	}
	curOwner := b.arena.Get(current.Child)
	owner := b.arena.Get(wipRoot.Child)

	render, err := b.manager.UpdateClassInstance(curOwner, owner, listType, b.props, t)
	if err != nil {
		return err
	}
	if render {
		b.effects, err = b.rec.ReconcileChildren(curOwner, owner, b.inst.render(), t)
	} else {
		b.effects, err = fiber.NewEffectList(), b.rec.CloneChildFibers(curOwner, owner)
	}
	if err != nil {
		return err
	}
	owner.MemoizedProps = b.props
	wipRoot.ChildExpirationTime = max(owner.ExpirationTime, owner.ChildExpirationTime)
	return root.Commit(b.arena, wipRoot)
}

// mutate returns keys after removing, inserting and swapping the configured
// fractions of entries.
func (b *bench) mutate(keys []string) []string {
	next := make([]string, len(keys))
	copy(next, keys)

	for range int(b.sc.Remove * float64(b.sc.Size)) {
		if len(next) == 0 {
			break
		}
		i := b.rng.IntN(len(next))
		next = append(next[:i], next[i+1:]...)
	}
	for range int(b.sc.Insert * float64(b.sc.Size)) {
		i := b.rng.IntN(len(next) + 1)
		next = append(next, "")
		copy(next[i+1:], next[i:])
		next[i] = strconv.Itoa(b.nextKey)
		b.nextKey++
	}
	if len(next) > 1 {
		for range int(b.sc.Shuffle * float64(b.sc.Size)) {
			i, j := b.rng.IntN(len(next)), b.rng.IntN(len(next))
			next[i], next[j] = next[j], next[i]
		}
	}
	return next
}

func (b *bench) keys() []string {
	keys, _ := b.inst.State[keysState].([]string)
	return keys
}

// step hands next to the list through SetState. The batch flush renders and
// commits before step returns.
func (b *bench) step(next []string) error {
	b.effects, b.renderErr = nil, nil
	var err error
	b.sched.Batch(func() {
		err = b.inst.SetState(update.Partial{keysState: next}, nil)
	})
	if err != nil {
		return err
	}
	return b.renderErr
}

func runScenario(ctx context.Context, sc config.Scenario, clk clock.Clock) (*result, error) {
	b := newBench(ctx, sc, clk)
	if err := b.mount(); err != nil {
		return nil, fmt.Errorf("mount %s: %w", sc.Name, err)
	}

	res := &result{scenario: sc, tree: b.arena, root: b.root}
	tach := tachymeter.New(&tachymeter.Config{Size: sc.Iterations})
	for i := range sc.Iterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := b.mutate(b.keys())

		start := time.Now()
		err := b.step(next)
		tach.AddTime(time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("iteration %d of %s: %w", i, sc.Name, err)
		}
		countEffects(b.arena, b.effects, res)
	}

	res.metrics = tach.Calc()
	res.effects = b.effects
	res.nodes = b.arena.Len()
	return res, nil
}

func countEffects(a *fiber.Arena, effects *fiber.EffectList, res *result) {
	if effects == nil {
		return
	}
	for _, id := range effects.IDs() {
		f := a.Get(id)
		if f.EffectTag&fiber.Deletion != 0 {
			res.deletions++
		}
		if f.EffectTag&fiber.Placement != 0 {
			res.placements++
		}
	}
}
