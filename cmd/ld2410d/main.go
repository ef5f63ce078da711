package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ld2410.go/pkg/config"
	"github.com/robotalks/ld2410.go/pkg/ld2410"
	"github.com/robotalks/ld2410.go/pkg/ld2410/serial"
	"github.com/robotalks/ld2410.go/pkg/mqtt"
	"github.com/robotalks/ld2410.go/pkg/msgs"
)

const logQueueSize = 64

func main() {
	conf, err := config.Parse(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalln(err)
	}
	defer glog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var link *mqtt.Link
	var meta *mqtt.DeviceInfoPublisher
	var handler ld2410.ReportHandler
	if conf.MQTT != "" {
		if link, err = mqtt.NewLinkFromURL(conf.MQTT); err != nil {
			log.Fatalln(err)
		}
		meta = &mqtt.DeviceInfoPublisher{Publisher: link}
		link.OnConnect = meta.OnConnect
		if err = link.Connect(); err != nil {
			log.Fatalln(err)
		}
		defer link.Close()
		handler = mqtt.NewReportPublisher(link, conf.Node)
	} else {
		reports := ld2410.NewReportChan(logQueueSize)
		go logReports(ctx, reports)
		handler = reports
	}

	transport := serial.NewTransport(conf.Serial)
	transport.ErrorHandler = func(err error) {
		glog.Errorf("serial link failed: %v", err)
		stop()
	}
	session := ld2410.NewSession(transport)
	session.Handler = handler
	session.Timeout = conf.CommandTimeout
	if err = session.Open(); err != nil {
		log.Fatalln(err)
	}
	defer session.Close()

	info, err := setup(ctx, session, conf)
	if err != nil {
		log.Fatalln(err)
	}
	glog.Infof("%s on %s: firmware %s, mac %s", info.Node, info.Device, info.Firmware, info.MAC)
	if meta != nil {
		if err = meta.Publish(info); err != nil {
			glog.Errorf("publish device info: %v", err)
		}
	}

	<-ctx.Done()
	glog.Info("shutting down")
}

// setup reads the device info and applies the configured sensor settings.
// It always tries to leave configuration mode, otherwise the module
// stops reporting.
func setup(ctx context.Context, s *ld2410.Session, conf *config.Config) (info *msgs.DeviceInfo, err error) {
	info = &msgs.DeviceInfo{
		Node:      conf.Node,
		Device:    conf.Serial.Device,
		Baud:      conf.Serial.Baud,
		StartedAt: time.Now(),
	}
	mode, err := s.EnableConfiguration(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if endErr := s.EndConfiguration(ctx); endErr != nil && err == nil {
			err = endErr
		}
	}()
	info.ProtocolVersion, info.BufferSize = mode.ProtocolVersion, mode.BufferSize

	ver, err := s.ReadFirmwareVersion(ctx)
	if err != nil {
		return nil, err
	}
	info.Firmware = ver.String()
	// bluetooth may be absent on some boards
	if mac, err := s.ReadMAC(ctx); err == nil {
		info.MAC = mac.String()
	} else {
		glog.Warningf("read MAC: %v", err)
	}

	if conf.Sensor != nil {
		sensor, err := conf.Sensor.Configuration()
		if err != nil {
			return nil, err
		}
		if err = s.ApplyConfiguration(ctx, sensor); err != nil {
			return nil, err
		}
		glog.Info("sensor configuration applied")
	}
	current, err := s.ReadConfiguration(ctx)
	if err != nil {
		return nil, err
	}
	info.Sensor = msgs.NewSensorConfig(current)

	if conf.Engineering {
		err = s.EnableEngineeringMode(ctx)
	} else {
		err = s.DisableEngineeringMode(ctx)
	}
	if err != nil {
		return nil, err
	}
	info.Engineering = s.EngineeringMode()
	return info, nil
}

func logReports(ctx context.Context, reports *ld2410.ReportChan) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-reports.C():
			glog.Infof("%s: moving %dcm/%d stationary %dcm/%d detection %dcm",
				r.State, r.Moving.Distance, r.Moving.Energy,
				r.Stationary.Distance, r.Stationary.Energy, r.DetectionDistance)
			if e := r.Engineering; e != nil {
				glog.V(1).Infof("gates moving %v static %v", e.MovingEnergy, e.StaticEnergy)
			}
		}
	}
}
