package playback

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// checkpointer periodically saves the playhead of one element. It owns a goroutine from start until stop.
type checkpointer struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type checkpointConfig struct {
	element   Element
	itemID    int
	positions Positions
	clock     Clock
	interval  time.Duration
	onEnded   func()
	logger    *log.Logger
}

// startCheckpointer creates the ticker before returning, so the first tick is one interval after the call.
func startCheckpointer(cfg checkpointConfig) *checkpointer {
	ctx, cancel := context.WithCancel(context.Background())
	ticker := cfg.clock.NewTicker(cfg.interval)

	c := &checkpointer{cancel: cancel}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				if ctx.Err() != nil {
					return
				}

				pos := clampOffset(cfg.element.Position(), cfg.element.Duration())
				if cfg.itemID > 0 && cfg.positions != nil {
					if err := cfg.positions.Save(cfg.itemID, pos); err != nil {
						cfg.logger.Debug("checkpoint dropped", "audio_id", cfg.itemID, "position", pos, "error", err)
					}
				}

				if cfg.element.Ended() {
					if cfg.onEnded != nil {
						go cfg.onEnded()
					}
					return
				}
			}
		}
	}()
	return c
}

// stop cancels the loop and waits for it to exit. Safe to call more than once.
func (c *checkpointer) stop() {
	if c == nil {
		return
	}
	c.once.Do(c.cancel)
	c.wg.Wait()
}
