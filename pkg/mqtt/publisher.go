package mqtt

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ld2410.go/pkg/ld2410"
	"github.com/robotalks/ld2410.go/pkg/msgs"
)

// Topic suffixes under a node.
const (
	ReportSuffix = "report"
	MetaSuffix   = "meta"
)

// ReportTopic is the topic reports of node are published to.
func ReportTopic(node string) string {
	return node + "/" + ReportSuffix
}

// MetaTopic is the topic the device info of node is retained on.
func MetaTopic(node string) string {
	return node + "/" + MetaSuffix
}

// NodeOf extracts the node from a report or meta topic.
func NodeOf(topic string) (node, suffix string, ok bool) {
	for _, s := range []string{ReportSuffix, MetaSuffix} {
		if MatchTopic(topic, "+/"+s) {
			return topic[:len(topic)-len(s)-1], s, true
		}
	}
	return "", "", false
}

// ReportPublisher is a ld2410.ReportHandler publishing every report,
// fire-and-forget, on the receive path.
type ReportPublisher struct {
	Publisher Publisher
	Topic     string
	QoS       byte
	// Now stamps reports, defaults to time.Now.
	Now func() time.Time

	published uint64
}

// NewReportPublisher creates a ReportPublisher for node.
func NewReportPublisher(p Publisher, node string) *ReportPublisher {
	return &ReportPublisher{Publisher: p, Topic: ReportTopic(node), Now: time.Now}
}

// HandleReport implements ld2410.ReportHandler.
func (p *ReportPublisher) HandleReport(r *ld2410.Report) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	data, err := msgs.EncodeReport(r, now())
	if err != nil {
		glog.Errorf("encode report: %v", err)
		return
	}
	p.Publisher.Publish(p.Topic, p.QoS, false, data)
	atomic.AddUint64(&p.published, 1)
}

// Published returns the number of reports handed to the publisher.
func (p *ReportPublisher) Published() uint64 {
	return atomic.LoadUint64(&p.published)
}

// PublishDeviceInfo publishes the retained device info of node and waits
// for the broker to accept it.
func PublishDeviceInfo(p Publisher, info *msgs.DeviceInfo) error {
	data, err := info.Encode()
	if err != nil {
		return err
	}
	token := p.Publish(MetaTopic(info.Node), 1, true, data)
	token.Wait()
	return token.Error()
}

// DeviceInfoPublisher keeps the device info of the node retained on the
// broker. Set OnConnect as Link.OnConnect to publish it again after every
// reconnect, a broker without persistence forgets retained messages.
type DeviceInfoPublisher struct {
	Publisher Publisher

	lock sync.Mutex
	info *msgs.DeviceInfo
}

// Publish remembers info and publishes it.
func (p *DeviceInfoPublisher) Publish(info *msgs.DeviceInfo) error {
	p.lock.Lock()
	p.info = info
	p.lock.Unlock()
	return PublishDeviceInfo(p.Publisher, info)
}

// OnConnect publishes the last device info again, if any.
func (p *DeviceInfoPublisher) OnConnect(*Link) {
	p.lock.Lock()
	info := p.info
	p.lock.Unlock()
	if info == nil {
		return
	}
	if err := PublishDeviceInfo(p.Publisher, info); err != nil {
		glog.Warningf("republish device info: %v", err)
	}
}
