package thread

import (
    "sync"
    "context"
)

/* Goroutines that share a quit context, so the renderer, the player, the
 * encoder and the monitor all stop together. The first error returned by any
 * of them cancels the rest and is reported by Wait.
 */
type ThreadGroup struct {
    wait sync.WaitGroup
    quit context.Context
    cancel context.CancelFunc

    lock sync.Mutex
    err error
}

type ThreadFuncCancel func(quit context.Context, cancel context.CancelFunc) error
type ThreadFunc func() error

func NewThreadGroup(parent context.Context) *ThreadGroup {
    quit, cancel := context.WithCancel(parent)
    return &ThreadGroup{
        quit: quit,
        cancel: cancel,
    }
}

func (group *ThreadGroup) fail(err error) {
    if err == nil {
        return
    }
    group.lock.Lock()
    if group.err == nil {
        group.err = err
    }
    group.lock.Unlock()
    group.cancel()
}

/* create a new group that can have its own set of threads.
 * the current group waits for all subgroups and takes their first error
 */
func (group *ThreadGroup) SubGroup() *ThreadGroup {
    out := NewThreadGroup(group.quit)

    group.wait.Add(1)
    go func(){
        defer group.wait.Done()
        <-out.quit.Done()
        out.wait.Wait()
        group.fail(out.Err())
    }()

    return out
}

func (group *ThreadGroup) SpawnWithCancel(f ThreadFuncCancel){
    group.wait.Add(1)
    go func(){
        defer group.wait.Done()
        group.fail(f(group.quit, group.cancel))
    }()
}

func (group *ThreadGroup) Spawn(f ThreadFunc) {
    group.wait.Add(1)
    go func(){
        defer group.wait.Done()
        group.fail(f())
    }()
}

func (group *ThreadGroup) Cancel(){
    group.cancel()
}

func (group *ThreadGroup) Context() context.Context {
    return group.quit
}

func (group *ThreadGroup) Done() <-chan struct{} {
    return group.quit.Done()
}

/* the first error returned by a thread */
func (group *ThreadGroup) Err() error {
    group.lock.Lock()
    defer group.lock.Unlock()
    return group.err
}

func (group *ThreadGroup) Wait() error {
    group.wait.Wait()
    group.cancel()
    return group.Err()
}
