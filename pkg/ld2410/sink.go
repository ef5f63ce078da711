package ld2410

import (
	"sync/atomic"

	"github.com/golang/glog"
)

// ReportHandler receives reports from the receive path. It must not block.
type ReportHandler interface {
	HandleReport(*Report)
}

// HandleReportFunc is func type of ReportHandler.
type HandleReportFunc func(*Report)

// HandleReport implements ReportHandler.
func (f HandleReportFunc) HandleReport(r *Report) {
	f(r)
}

// ReportHandlers dispatches a report to every handler in order.
type ReportHandlers []ReportHandler

// HandleReport implements ReportHandler.
func (hs ReportHandlers) HandleReport(r *Report) {
	for _, h := range hs {
		h.HandleReport(r)
	}
}

// ReportChan is a bounded channel of reports. Reports are dropped when
// the channel is full.
type ReportChan struct {
	ch      chan *Report
	dropped uint64
}

// NewReportChan creates a ReportChan holding up to size reports.
func NewReportChan(size int) *ReportChan {
	return &ReportChan{ch: make(chan *Report, size)}
}

// C returns the chan to retrieve reports.
func (c *ReportChan) C() <-chan *Report {
	return c.ch
}

// Dropped returns the number of reports dropped so far.
func (c *ReportChan) Dropped() uint64 {
	return atomic.LoadUint64(&c.dropped)
}

// HandleReport implements ReportHandler.
func (c *ReportChan) HandleReport(r *Report) {
	select {
	case c.ch <- r:
	default:
		if n := atomic.AddUint64(&c.dropped, 1); n == 1 || n%100 == 0 {
			glog.Warningf("report chan full, %d reports dropped", n)
		}
	}
}
