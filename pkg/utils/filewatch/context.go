package filewatch

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// ops which change the content visible at a path. Chmod is left out:
// permission churn on mounted volumes must not restart the service.
const modifyOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// UntilModifyContext returns a context that is canceled when one of the
// target files is written, created, removed, or renamed.
//
// The returned cancel function releases the watcher; call it even when
// no file event ever fires. When watching cannot be started, both the
// context and the cancel function are nil and the error tells why.
func UntilModifyContext(ctx context.Context, targetFilePath ...string) (context.Context, func(), error) {
	cctx, cancel := context.WithCancelCause(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cancel(err)
		return nil, nil, err
	}

	go func() {
		defer w.Close()

		for {
			select {
			case <-cctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&modifyOps == 0 {
					continue
				}
				cancel(fmt.Errorf("%s is updated (%s)", event.Name, event.Op.String()))
			}
		}
	}()

	for _, f := range targetFilePath {
		if err = w.Add(f); err != nil {
			cancel(err)
			return nil, nil, err
		}
	}
	return cctx, func() { cancel(nil) }, nil
}
