package metrics

import (
	"time"

	"github.com/cuemby/warren/pkg/catalog"
)

// Collector periodically samples a Datastore's committed state and
// publishes it as gauges, the way a long-running process exposes
// point-in-time catalog size without wiring a collector into every
// call site that mutates it.
type Collector struct {
	committed *catalog.CommittedState
	stopCh    chan struct{}
}

// NewCollector creates a collector over committed.
func NewCollector(committed *catalog.CommittedState) *Collector {
	return &Collector{
		committed: committed,
		stopCh:    make(chan struct{}),
	}
}

// Start begins collecting metrics on a fixed interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectTableMetrics()
	c.collectTxOffset()
}

func (c *Collector) collectTableMetrics() {
	TablesTotal.Set(float64(len(c.committed.Tables)))

	indexCount := 0
	for _, t := range c.committed.Tables {
		RowsTotal.WithLabelValues(t.Name).Set(float64(t.NumRows()))
		indexCount += t.IndexCount()
	}
	IndexesTotal.Set(float64(indexCount))
}

func (c *Collector) collectTxOffset() {
	TxOffset.Set(float64(c.committed.NextTxOffset))
}
